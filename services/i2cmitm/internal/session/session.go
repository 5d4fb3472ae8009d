// Package session wraps a real driver session and applies the override
// policy of its device to single-command sends.
package session

import (
	"context"
	"fmt"
	"sync"

	"i2cmitm-go/drivers/i2c"
	"i2cmitm-go/drivers/i2c/cmdlist"
	"i2cmitm-go/logging"
	"i2cmitm-go/services/i2cmitm/internal/override"
	"i2cmitm-go/types"
)

// Intercepted owns exactly one real session and closes it exactly once.
type Intercepted struct {
	real   i2c.Session
	device types.DeviceCode
	client types.ClientInfo
	policy *override.Policy
	log    logging.Sink

	closeOnce sync.Once
	closeErr  error
}

var _ i2c.Session = (*Intercepted)(nil)

// New wraps real. policy may be nil, in which case every send passes through.
func New(real i2c.Session, device types.DeviceCode, client types.ClientInfo, policy *override.Policy, log logging.Sink) *Intercepted {
	if log == nil {
		log = logging.Discard
	}
	return &Intercepted{real: real, device: device, client: client, policy: policy, log: log}
}

func (s *Intercepted) Device() types.DeviceCode { return s.device }

func (s *Intercepted) Send(ctx context.Context, conv types.Convention, data []byte, opt types.TransactionOption) error {
	out := s.policy.TryOverride(data)
	switch out.Kind {
	case override.Replace:
		s.log.Printf("%s%s", s.header(), out.Note)
		return s.forwardSend(ctx, conv, out.Payload, opt)
	case override.ReplaceAndForwardOriginal:
		s.log.Printf("%s%s", s.header(), out.Note)
		if err := s.forwardSend(ctx, conv, out.Payload, opt); err != nil {
			return err
		}
	}
	return s.forwardSend(ctx, conv, data, opt)
}

func (s *Intercepted) Receive(ctx context.Context, conv types.Convention, buf []byte, opt types.TransactionOption) error {
	err := s.real.Receive(ctx, conv, buf, opt)
	s.logTransfer(false, buf, opt, err)
	return err
}

// ExecuteCommandList forwards the list as one transaction. Commands inside
// a list are never rewritten.
func (s *Intercepted) ExecuteCommandList(ctx context.Context, conv types.Convention, rcv []byte, commands []byte) error {
	err := s.real.ExecuteCommandList(ctx, conv, rcv, commands)
	if s.log.Enabled() {
		l := logging.NewLine(logging.MaxLine).Printf("%s", s.header())
		var recv []byte
		if err == nil {
			recv = rcv
		}
		cmdlist.AppendForLog(l, commands, err, recv)
		s.log.Printf("%s", l.String())
		if _, derr := cmdlist.DecodeAll(commands); derr != nil {
			s.log.DataDump(commands, "%smalformed command list:", s.header())
		}
	}
	return err
}

func (s *Intercepted) SetRetryPolicy(ctx context.Context, maxRetryCount, retryIntervalUs int32) error {
	return s.real.SetRetryPolicy(ctx, maxRetryCount, retryIntervalUs)
}

func (s *Intercepted) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.real.Close() })
	return s.closeErr
}

// forwardSend is the single path by which bytes reach the real session.
func (s *Intercepted) forwardSend(ctx context.Context, conv types.Convention, data []byte, opt types.TransactionOption) error {
	err := s.real.Send(ctx, conv, data, opt)
	s.logTransfer(true, data, opt, err)
	return err
}

func (s *Intercepted) header() string {
	return Header(s.client.ProgramID, s.device)
}

func (s *Intercepted) logTransfer(send bool, data []byte, opt types.TransactionOption, err error) {
	if !s.log.Enabled() {
		return
	}
	dir := "recv"
	if send {
		dir = "send"
	}
	l := logging.NewLine(logging.MaxLine).Printf("%s", s.header())
	l.Printf("result: 0x%08x, %-4s, start: %t, stop: %t, data: [", uint32(types.ResultOf(err)), dir, opt.Start(), opt.Stop())
	l.Hex(data).Printf("]")
	s.log.Printf("%s", l.String())
}

// Header is the log prefix naming the client and the device.
func Header(pid types.ProgramID, device types.DeviceCode) string {
	return fmt.Sprintf("ProgID: 0x%016x, I2C dev: 0x%08x (%s): ", uint64(pid), uint32(device), device.Name())
}
