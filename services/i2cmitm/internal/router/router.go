// Package router decides, per opened session, whether the client gets an
// intercepting wrapper or the real driver's handle.
package router

import (
	"context"
	"fmt"

	"i2cmitm-go/drivers/i2c"
	"i2cmitm-go/errcode"
	"i2cmitm-go/logging"
	"i2cmitm-go/services/i2cmitm/internal/override"
	"i2cmitm-go/services/i2cmitm/internal/session"
	"i2cmitm-go/types"
)

// Handle is what an open returns. When Intercepted is false, Session is the
// real driver's handle with nothing in front of it.
type Handle struct {
	Session     i2c.Session
	Intercepted bool
}

type Router struct {
	driver i2c.Driver
	engine *override.Engine
	log    logging.Sink
}

func New(driver i2c.Driver, engine *override.Engine, log logging.Sink) *Router {
	if log == nil {
		log = logging.Discard
	}
	return &Router{driver: driver, engine: engine, log: log}
}

// ShouldMitm reports whether a client's opens go through this router at all.
func (r *Router) ShouldMitm(types.ClientInfo) bool { return true }

// ShouldIntercept is true for the single target device only.
func (r *Router) ShouldIntercept(code types.DeviceCode) bool {
	return code == override.Target
}

// ShouldInterceptAddress is always false: raw-address opens pass through.
func (r *Router) ShouldInterceptAddress(types.BusAddress) bool { return false }

// OpenDevice serves the legacy enum entry point.
func (r *Router) OpenDevice(ctx context.Context, dev types.Device, client types.ClientInfo) (Handle, error) {
	code, ok := dev.DeviceCode()
	if !ok {
		return Handle{}, errcode.Wrap(errcode.InvalidParams, "open", fmt.Sprintf("legacy device %d", uint32(dev)), nil)
	}
	return r.Open(ctx, code, client)
}

// Open always opens on the real driver. A driver error is returned as is.
func (r *Router) Open(ctx context.Context, code types.DeviceCode, client types.ClientInfo) (Handle, error) {
	intercept := r.ShouldIntercept(code)
	if intercept {
		r.log.Infof("OpenSession2 dev: %s (0x%x), ProgID: 0x%016x, i2c session mitm enabled", code.Name(), uint32(code), uint64(client.ProgramID))
	} else {
		r.log.Infof("OpenSession2 dev: %s (0x%x), ProgID: 0x%016x", code.Name(), uint32(code), uint64(client.ProgramID))
	}
	real, err := r.driver.OpenSession(ctx, code)
	if err != nil {
		return Handle{}, err
	}
	if !intercept {
		return Handle{Session: real}, nil
	}
	return Handle{
		Session:     session.New(real, code, client, r.engine.PolicyFor(code), r.log),
		Intercepted: true,
	}, nil
}

// OpenForDev opens by raw address and never intercepts.
func (r *Router) OpenForDev(ctx context.Context, addr types.BusAddress, client types.ClientInfo) (Handle, error) {
	intercept := r.ShouldInterceptAddress(addr)
	r.log.Infof("OpenSessionForDev %s, ProgID: 0x%016x, intercept: %t", addr, uint64(client.ProgramID), intercept)
	real, err := r.driver.OpenSessionForDev(ctx, addr)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Session: real}, nil
}
