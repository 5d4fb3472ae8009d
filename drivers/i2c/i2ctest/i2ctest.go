// Package i2ctest provides recording fakes of the driver boundary.
package i2ctest

import (
	"context"
	"sync"

	"i2cmitm-go/drivers/i2c"
	"i2cmitm-go/types"
)

// Op names a recorded call.
type Op string

const (
	OpSend    Op = "send"
	OpReceive Op = "receive"
	OpExecute Op = "execute"
	OpRetry   Op = "retry"
	OpClose   Op = "close"
)

// Call is one forwarded call as the real driver saw it.
type Call struct {
	Op         Op
	Convention types.Convention
	Data       []byte // send payload or command list
	Size       int    // receive or execute buffer length
	Option     types.TransactionOption
	Retry      [2]int32
}

// Session records every call. Err, when set, picks the error returned for
// a call; RecvData is copied into receive buffers whether or not the call
// fails, the way a driver that wrote part of a transfer would.
type Session struct {
	mu       sync.Mutex
	calls    []Call
	Err      func(c Call) error
	RecvData []byte
}

var _ i2c.Session = (*Session)(nil)

func (s *Session) record(c Call) error {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	fn := s.Err
	s.mu.Unlock()
	if fn != nil {
		return fn(c)
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Sent returns the payloads of recorded sends in order.
func (s *Session) Sent() [][]byte {
	var out [][]byte
	for _, c := range s.Calls() {
		if c.Op == OpSend {
			out = append(out, c.Data)
		}
	}
	return out
}

// Count returns how many calls of op were recorded.
func (s *Session) Count(op Op) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (s *Session) Send(_ context.Context, conv types.Convention, data []byte, opt types.TransactionOption) error {
	return s.record(Call{Op: OpSend, Convention: conv, Data: append([]byte(nil), data...), Option: opt})
}

func (s *Session) Receive(_ context.Context, conv types.Convention, buf []byte, opt types.TransactionOption) error {
	err := s.record(Call{Op: OpReceive, Convention: conv, Size: len(buf), Option: opt})
	copy(buf, s.RecvData)
	return err
}

func (s *Session) ExecuteCommandList(_ context.Context, conv types.Convention, rcv []byte, commands []byte) error {
	err := s.record(Call{Op: OpExecute, Convention: conv, Data: append([]byte(nil), commands...), Size: len(rcv)})
	copy(rcv, s.RecvData)
	return err
}

func (s *Session) SetRetryPolicy(_ context.Context, maxRetryCount, retryIntervalUs int32) error {
	return s.record(Call{Op: OpRetry, Retry: [2]int32{maxRetryCount, retryIntervalUs}})
}

func (s *Session) Close() error { return s.record(Call{Op: OpClose}) }

// Driver hands out recording sessions and remembers what was opened.
type Driver struct {
	mu       sync.Mutex
	OpenErr  error
	Sessions []*Session
	Codes    []types.DeviceCode
	Addrs    []types.BusAddress
	// NewSession customises each session before it is returned.
	NewSession func(*Session)
}

var _ i2c.Driver = (*Driver)(nil)

func (d *Driver) open() (*Session, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	s := &Session{}
	if d.NewSession != nil {
		d.NewSession(s)
	}
	d.Sessions = append(d.Sessions, s)
	return s, nil
}

func (d *Driver) OpenSession(_ context.Context, code types.DeviceCode) (i2c.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Codes = append(d.Codes, code)
	s, err := d.open()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Driver) OpenSessionForDev(_ context.Context, addr types.BusAddress) (i2c.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Addrs = append(d.Addrs, addr)
	s, err := d.open()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FailOpens makes every later open return err.
func (d *Driver) FailOpens(err error) {
	d.mu.Lock()
	d.OpenErr = err
	d.mu.Unlock()
}

// Last returns the most recently opened session.
func (d *Driver) Last() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Sessions) == 0 {
		return nil
	}
	return d.Sessions[len(d.Sessions)-1]
}
