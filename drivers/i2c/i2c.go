// Package i2c defines the session protocol shared by the real bus driver and
// everything that stands in front of it. Client-facing handles and driver
// handles have the same shape so that forwarding is a one-to-one call.
package i2c

import (
	"context"

	"i2cmitm-go/types"
)

// Session is one open logical channel to a device.
//
// Each transfer call takes the buffer-passing convention the client used.
// The convention never changes the bytes on the bus; it is carried so the
// driver sees exactly the call the client made.
type Session interface {
	Send(ctx context.Context, conv types.Convention, data []byte, opt types.TransactionOption) error
	// Receive fills buf completely on success.
	Receive(ctx context.Context, conv types.Convention, buf []byte, opt types.TransactionOption) error
	// ExecuteCommandList runs an encoded command list as one transaction;
	// receive data is written to rcv in command order.
	ExecuteCommandList(ctx context.Context, conv types.Convention, rcv []byte, commands []byte) error
	SetRetryPolicy(ctx context.Context, maxRetryCount, retryIntervalUs int32) error
	// Close releases the channel. Calling it more than once is a no-op.
	Close() error
}

// Driver opens sessions against the real bus driver.
type Driver interface {
	OpenSession(ctx context.Context, code types.DeviceCode) (Session, error)
	OpenSessionForDev(ctx context.Context, addr types.BusAddress) (Session, error)
}
