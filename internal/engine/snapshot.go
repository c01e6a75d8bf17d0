package engine

import "time"

// Snapshot is a copy of the encounter state handed to presentation.
type Snapshot struct {
	ID       string
	Kind     string
	State    State
	Winner   int
	Sides    [][]Combatant
	Log      []LogEntry
	Actions  int
	Deadline time.Time
}

func (e *Encounter) Snapshot() Snapshot {
	s := Snapshot{
		ID:       e.id,
		Kind:     e.kind,
		State:    e.state,
		Winner:   e.winner,
		Log:      e.log.Entries(),
		Actions:  e.actions,
		Deadline: e.deadline,
	}
	s.Sides = make([][]Combatant, len(e.sides))
	for i, side := range e.sides {
		s.Sides[i] = make([]Combatant, len(side))
		for j, c := range side {
			s.Sides[i][j] = *c
		}
	}
	return s
}
