package host

import (
	"context"
	"sync"
	"time"

	"i2cmitm-go/drivers/i2c"
	"i2cmitm-go/drivers/i2c/cmdlist"
	"i2cmitm-go/errcode"
	"i2cmitm-go/types"

	"tinygo.org/x/drivers"
)

// Session talks to one slave address. A send without a stop condition is
// held back and issued together with the next transfer, so that a register
// pointer write followed by a read becomes one repeated-start Tx.
type Session struct {
	bus     drivers.I2C
	addr    types.BusAddress
	release func()

	mu      sync.Mutex
	pending []byte
	retries int32
	retryUs int32
	closed  bool
}

var _ i2c.Session = (*Session)(nil)

func (s *Session) Address() types.BusAddress { return s.addr }

// RetryPolicy returns the values last set with SetRetryPolicy.
func (s *Session) RetryPolicy() (maxRetryCount, retryIntervalUs int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries, s.retryUs
}

func (s *Session) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return errcode.Closed
	}
	return nil
}

func (s *Session) Send(ctx context.Context, _ types.Convention, data []byte, opt types.TransactionOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	return s.send(data, opt.Stop())
}

func (s *Session) Receive(ctx context.Context, _ types.Convention, buf []byte, _ types.TransactionOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	return s.receive(buf)
}

func (s *Session) ExecuteCommandList(ctx context.Context, _ types.Convention, rcv []byte, commands []byte) error {
	cmds, err := cmdlist.DecodeAll(commands)
	if err != nil {
		return err
	}
	if need := cmdlist.ReceiveTotal(cmds); len(rcv) < need {
		return errcode.Wrap(errcode.BufferTooSmall, "execute", "", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	off := 0
	for _, c := range cmds {
		switch c.Kind {
		case cmdlist.KindSend:
			err = s.send(c.Data, c.Stop)
		case cmdlist.KindReceive:
			err = s.receive(rcv[off : off+int(c.Size)])
			off += int(c.Size)
		case cmdlist.KindSleep:
			err = sleep(ctx, time.Duration(c.Micros)*time.Microsecond)
		}
		if err != nil {
			s.pending = s.pending[:0]
			return err
		}
	}
	return s.flush()
}

func (s *Session) SetRetryPolicy(ctx context.Context, maxRetryCount, retryIntervalUs int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx); err != nil {
		return err
	}
	if maxRetryCount < 0 || retryIntervalUs < 0 {
		return errcode.InvalidParams
	}
	s.retries, s.retryUs = maxRetryCount, retryIntervalUs
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil
	if s.release != nil {
		s.release()
	}
	return nil
}

// ---- bus helpers (s.mu held) ----

func (s *Session) send(data []byte, stop bool) error {
	s.pending = append(s.pending, data...)
	if !stop {
		return nil
	}
	return s.flush()
}

func (s *Session) receive(buf []byte) error {
	w := s.pending
	s.pending = s.pending[:0]
	return s.bus.Tx(s.addr.Slave, w, buf)
}

func (s *Session) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	w := s.pending
	s.pending = s.pending[:0]
	return s.bus.Tx(s.addr.Slave, w, nil)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
