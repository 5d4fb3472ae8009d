package i2cmitm

import (
	"context"
	"sync/atomic"
	"time"

	"i2cmitm-go/bus"
	"i2cmitm-go/drivers/i2c"
	"i2cmitm-go/errcode"
	"i2cmitm-go/types"
)

// DefaultTimeout bounds Close, which takes no context.
const DefaultTimeout = 2 * time.Second

// Client opens sessions on one service port.
type Client struct {
	conn *bus.Connection
	port string
	info types.ClientInfo
}

func NewClient(conn *bus.Connection, port string, info types.ClientInfo) *Client {
	return &Client{conn: conn, port: port, info: info}
}

// OpenSession opens by legacy device enum.
func (c *Client) OpenSession(ctx context.Context, dev types.Device) (*RemoteSession, error) {
	return c.open(ctx, types.OpenSessionRequest{Kind: types.OpenByDevice, Device: dev, Client: c.info})
}

// OpenSession2 opens by device code.
func (c *Client) OpenSession2(ctx context.Context, code types.DeviceCode) (*RemoteSession, error) {
	return c.open(ctx, types.OpenSessionRequest{Kind: types.OpenByDeviceCode, DeviceCode: code, Client: c.info})
}

func (c *Client) OpenSessionForDev(ctx context.Context, addr types.BusAddress) (*RemoteSession, error) {
	return c.open(ctx, types.OpenSessionRequest{Kind: types.OpenForDev, Address: addr, Client: c.info})
}

func (c *Client) open(ctx context.Context, req types.OpenSessionRequest) (*RemoteSession, error) {
	m, err := c.conn.RequestWait(ctx, c.conn.NewMessage(OpenTopic(c.port), req, false))
	if err != nil {
		return nil, err
	}
	switch r := m.Payload.(type) {
	case types.OpenSessionReply:
		if !r.OK {
			if r.Err == nil {
				return nil, errcode.Error
			}
			return nil, r.Err
		}
		return &RemoteSession{c: c, id: r.SessionID, intercepted: r.Intercepted}, nil
	case types.ErrorReply:
		return nil, errcode.Code(r.Error)
	}
	return nil, errcode.InvalidPayload
}

// Sessions asks the service for its open sessions.
func Sessions(ctx context.Context, conn *bus.Connection) ([]types.SessionInfo, error) {
	m, err := conn.RequestWait(ctx, conn.NewMessage(SessionsTopic(), nil, false))
	if err != nil {
		return nil, err
	}
	snap, ok := m.Payload.(types.SessionsSnapshot)
	if !ok {
		return nil, errcode.InvalidPayload
	}
	return snap.Sessions, nil
}

// RemoteSession is a session handle held through the bus. It has the same
// shape as a driver session.
type RemoteSession struct {
	c           *Client
	id          string
	intercepted bool
	closed      atomic.Bool
}

var _ i2c.Session = (*RemoteSession)(nil)

func (r *RemoteSession) ID() string        { return r.id }
func (r *RemoteSession) Intercepted() bool { return r.intercepted }

func (r *RemoteSession) call(ctx context.Context, op string, payload any) ([]byte, error) {
	m, err := r.c.conn.RequestWait(ctx, r.c.conn.NewMessage(SessionTopic(r.c.port, r.id, op), payload, false))
	if err != nil {
		return nil, err
	}
	switch rep := m.Payload.(type) {
	case types.TransactionReply:
		return rep.Data, rep.Err
	case types.ErrorReply:
		return nil, errcode.Code(rep.Error)
	}
	return nil, errcode.InvalidPayload
}

func (r *RemoteSession) Send(ctx context.Context, conv types.Convention, data []byte, opt types.TransactionOption) error {
	_, err := r.call(ctx, OpSend, types.SendRequest{Convention: conv, Data: append([]byte(nil), data...), Option: opt})
	return err
}

func (r *RemoteSession) Receive(ctx context.Context, conv types.Convention, buf []byte, opt types.TransactionOption) error {
	data, err := r.call(ctx, OpReceive, types.ReceiveRequest{
		Convention: conv,
		Size:       len(buf),
		Option:     opt,
		Buffer:     append([]byte(nil), buf...),
	})
	copy(buf, data)
	return err
}

func (r *RemoteSession) ExecuteCommandList(ctx context.Context, conv types.Convention, rcv []byte, commands []byte) error {
	data, err := r.call(ctx, OpExecute, types.ExecuteRequest{
		Convention:  conv,
		ReceiveSize: len(rcv),
		Commands:    append([]byte(nil), commands...),
		Receive:     append([]byte(nil), rcv...),
	})
	copy(rcv, data)
	return err
}

func (r *RemoteSession) SetRetryPolicy(ctx context.Context, maxRetryCount, retryIntervalUs int32) error {
	_, err := r.call(ctx, OpRetry, types.RetryPolicyRequest{MaxRetryCount: maxRetryCount, RetryIntervalUs: retryIntervalUs})
	return err
}

// Close releases the session on the service. Only the first call is sent.
func (r *RemoteSession) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	_, err := r.call(ctx, OpClose, nil)
	return err
}
