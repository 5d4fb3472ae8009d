package logging

import "fmt"

// Line is an append-only text buffer with a hard length limit. Writes past
// the limit are cut; nothing ever fails.
type Line struct {
	buf   []byte
	limit int
	cut   bool
}

func NewLine(limit int) *Line {
	if limit <= 0 {
		limit = MaxLine
	}
	return &Line{buf: make([]byte, 0, 128), limit: limit}
}

func (l *Line) write(s string) {
	room := l.limit - len(l.buf)
	if room <= 0 {
		l.cut = l.cut || len(s) > 0
		return
	}
	if len(s) > room {
		s = s[:room]
		l.cut = true
	}
	l.buf = append(l.buf, s...)
}

func (l *Line) Printf(format string, args ...any) *Line {
	l.write(fmt.Sprintf(format, args...))
	return l
}

// Hex appends bytes as "0x01, 0x02".
func (l *Line) Hex(data []byte) *Line {
	for i, b := range data {
		if i > 0 {
			l.write(", ")
		}
		l.write(fmt.Sprintf("0x%02x", b))
		if l.cut {
			break
		}
	}
	return l
}

func (l *Line) Len() int        { return len(l.buf) }
func (l *Line) Truncated() bool { return l.cut }
func (l *Line) String() string  { return string(l.buf) }
