package engine

// LogEntry is one numbered line of the action log.
type LogEntry struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

// ActionLog is a fixed-capacity ring of display lines; the oldest entry is
// evicted once full. Sequence numbers keep increasing across evictions.
type ActionLog struct {
	buf   []LogEntry
	start int
	size  int
	seq   int
}

func NewActionLog(capacity int) *ActionLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &ActionLog{buf: make([]LogEntry, capacity)}
}

// Append stores text under the next sequence number.
func (l *ActionLog) Append(text string) LogEntry {
	l.seq++
	e := LogEntry{Seq: l.seq, Text: text}
	if l.size < len(l.buf) {
		l.buf[(l.start+l.size)%len(l.buf)] = e
		l.size++
		return e
	}
	l.buf[l.start] = e
	l.start = (l.start + 1) % len(l.buf)
	return e
}

// Entries returns the retained entries, oldest first.
func (l *ActionLog) Entries() []LogEntry {
	out := make([]LogEntry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.start+i)%len(l.buf)]
	}
	return out
}

func (l *ActionLog) Len() int { return l.size }

// LastSeq is the sequence number of the newest entry, 0 when empty.
func (l *ActionLog) LastSeq() int { return l.seq }
