// Package host is the real session driver for buses reachable through
// tinygo's drivers.I2C, on the host emulator or on Linux i2c-dev.
package host

import (
	"context"
	"sync"

	"i2cmitm-go/drivers/i2c"
	"i2cmitm-go/errcode"
	"i2cmitm-go/platform"
	"i2cmitm-go/types"
)

type Driver struct {
	buses     platform.I2CBusFactory
	endpoints map[types.DeviceCode]Endpoint

	mu   sync.Mutex
	open int
}

// New builds a driver over buses. A nil endpoints map selects DefaultEndpoints.
func New(buses platform.I2CBusFactory, endpoints map[types.DeviceCode]Endpoint) *Driver {
	if endpoints == nil {
		endpoints = DefaultEndpoints
	}
	return &Driver{buses: buses, endpoints: endpoints}
}

var _ i2c.Driver = (*Driver)(nil)

func (d *Driver) OpenSession(ctx context.Context, code types.DeviceCode) (i2c.Session, error) {
	ep, ok := d.endpoints[code]
	if !ok {
		return nil, errcode.Wrap(errcode.UnknownDevice, "open", code.String(), nil)
	}
	return d.OpenSessionForDev(ctx, ep.Address())
}

func (d *Driver) OpenSessionForDev(ctx context.Context, addr types.BusAddress) (i2c.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if addr.Addressing != types.AddressingSevenBit || addr.Slave > 0x7F {
		return nil, errcode.Wrap(errcode.InvalidParams, "open", addr.String(), nil)
	}
	bus, err := platform.Resolve(d.buses, platform.BusID(addr.Bus))
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.open++
	d.mu.Unlock()
	return &Session{bus: bus, addr: addr, release: d.release}, nil
}

// Open reports the number of sessions not yet closed.
func (d *Driver) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *Driver) release() {
	d.mu.Lock()
	d.open--
	d.mu.Unlock()
}
