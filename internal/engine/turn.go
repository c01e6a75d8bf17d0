package engine

// nextActor advances the round-robin cursor to the next living combatant.
func (e *Encounter) nextActor() *Combatant {
	n := len(e.order)
	for i := 0; i < n; i++ {
		idx := (e.cursor + i) % n
		if c := e.order[idx]; c.Alive() {
			e.cursor = (idx + 1) % n
			return c
		}
	}
	return nil
}

// selectTarget picks a living opponent. A lone opponent is always chosen;
// when the opponents include both a player and a pet the player is drawn
// with PlayerTargetWeight, otherwise the pick is uniform.
func (e *Encounter) selectTarget(attacker *Combatant) *Combatant {
	var candidates []*Combatant
	hasPlayer, hasPet := false, false
	for i, side := range e.sides {
		if i == attacker.Side {
			continue
		}
		for _, c := range side {
			if !c.Alive() {
				continue
			}
			candidates = append(candidates, c)
			switch c.Kind {
			case KindPlayer:
				hasPlayer = true
			case KindPet:
				hasPet = true
			}
		}
	}
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}
	if !(hasPlayer && hasPet) {
		return candidates[e.rng.Intn(len(candidates))]
	}
	weights := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		switch c.Kind {
		case KindPlayer:
			weights[i] = e.rules.PlayerTargetWeight
		case KindPet:
			weights[i] = 1 - e.rules.PlayerTargetWeight
		default:
			weights[i] = 0.5
		}
		total += weights[i]
	}
	if total <= 0 {
		return candidates[e.rng.Intn(len(candidates))]
	}
	x := e.rng.Float64() * total
	for i, w := range weights {
		x -= w
		if x < 0 {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}
