package logging

import (
	"fmt"
	"strings"
	"sync"
)

// Memory keeps every line in order. It reports itself enabled so that
// transaction lines are rendered.
type Memory struct {
	mu    sync.Mutex
	lines []string
}

func (m *Memory) add(s string) {
	m.mu.Lock()
	m.lines = append(m.lines, s)
	m.mu.Unlock()
}

func (m *Memory) Enabled() bool                     { return true }
func (m *Memory) Printf(format string, args ...any) { m.add(fmt.Sprintf(format, args...)) }
func (m *Memory) Infof(format string, args ...any)  { m.add(fmt.Sprintf(format, args...)) }
func (m *Memory) Errorf(format string, args ...any) { m.add(fmt.Sprintf(format, args...)) }
func (m *Memory) DataDump(data []byte, format string, args ...any) {
	m.add(fmt.Sprintf(format, args...) + " " + strings.TrimSpace(fmt.Sprintf("% x", data)))
}

func (m *Memory) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

// Contains reports whether any line contains sub.
func (m *Memory) Contains(sub string) bool {
	for _, l := range m.Lines() {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}
