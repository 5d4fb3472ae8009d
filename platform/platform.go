// Package platform supplies drivers.I2C buses for the host driver.
package platform

import (
	"fmt"

	"i2cmitm-go/errcode"

	"tinygo.org/x/drivers"
)

// I2CBusFactory resolves a bus id such as "i2c0" to a bus.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// BusOpener is implemented by factories whose buses can fail to open for
// reasons other than not existing.
type BusOpener interface {
	Open(id string) (drivers.I2C, error)
}

// Resolve looks id up in f. The error always carries errcode.UnknownBus; for
// a BusOpener it also wraps the cause.
func Resolve(f I2CBusFactory, id string) (drivers.I2C, error) {
	if o, ok := f.(BusOpener); ok {
		b, err := o.Open(id)
		if err != nil {
			return nil, errcode.Wrap(errcode.UnknownBus, "open", fmt.Sprintf("%s: %v", id, err), err)
		}
		return b, nil
	}
	b, ok := f.ByID(id)
	if !ok {
		return nil, errcode.Wrap(errcode.UnknownBus, "open", id, nil)
	}
	return b, nil
}

// BusID returns the factory id for bus index n.
func BusID(n int32) string { return fmt.Sprintf("i2c%d", n) }

// Backend names accepted by New.
const (
	BackendHost  = "host"
	BackendLinux = "linux"
)

// New returns the factory for the named backend.
func New(backend string) (I2CBusFactory, error) {
	switch backend {
	case "", BackendHost:
		return DefaultI2CFactory(), nil
	case BackendLinux:
		return LinuxI2CFactory()
	default:
		return nil, fmt.Errorf("platform: unknown backend %q", backend)
	}
}
