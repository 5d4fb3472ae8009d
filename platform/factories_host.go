package platform

import (
	"sync"

	"i2cmitm-go/drivers/bq24193"
	"i2cmitm-go/errcode"

	"tinygo.org/x/drivers"
)

// ----------------------------- I²C (host) ------------------------------------

// Max17050 fuel gauge address on the power bus.
const addrMax17050 = 0x36

// Tx is one recorded bus transfer.
type Tx struct {
	Addr uint16
	W    []byte
	Rn   int
}

// RegisterFile is an emulated device with 256 8-bit registers. The first
// written byte sets the register pointer; further bytes are stored with
// auto-increment, and reads continue from the pointer.
type RegisterFile struct {
	regs [256]byte
	ptr  byte
}

// HostI2C implements tinygo drivers.I2C over emulated register files.
type HostI2C struct {
	mu      sync.Mutex
	devices map[uint16]*RegisterFile
	history []Tx
}

func NewHostI2C() *HostI2C {
	return &HostI2C{devices: make(map[uint16]*RegisterFile)}
}

// Attach adds a device at addr with the given initial register values.
func (h *HostI2C) Attach(addr uint16, init map[byte]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rf := &RegisterFile{}
	for reg, v := range init {
		rf.regs[reg] = v
	}
	h.devices[addr] = rf
}

// Register reads back an emulated register without touching the history.
func (h *HostI2C) Register(addr uint16, reg byte) (byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rf, ok := h.devices[addr]
	if !ok {
		return 0, false
	}
	return rf.regs[reg], true
}

// History returns a copy of all transfers seen so far.
func (h *HostI2C) History() []Tx {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Tx, len(h.history))
	copy(out, h.history)
	return out
}

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, Tx{Addr: addr, W: append([]byte(nil), w...), Rn: len(r)})
	rf, ok := h.devices[addr]
	if !ok {
		return errcode.NoDevice
	}
	if len(w) > 0 {
		rf.ptr = w[0]
		for _, b := range w[1:] {
			rf.regs[rf.ptr] = b
			rf.ptr++
		}
	}
	for i := range r {
		r[i] = rf.regs[rf.ptr]
		rf.ptr++
	}
	return nil
}

type hostI2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *hostI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// HostFactory serves the given buses by id.
func HostFactory(buses map[string]*HostI2C) I2CBusFactory {
	f := &hostI2CFactory{buses: make(map[string]drivers.I2C, len(buses))}
	for id, b := range buses {
		f.buses[id] = b
	}
	return f
}

// DefaultI2CFactory creates host buses "i2c0" and "i2c1". Bus 0 carries an
// emulated charger at its stock settings and a fuel gauge.
func DefaultI2CFactory() I2CBusFactory {
	return HostFactory(map[string]*HostI2C{
		"i2c0": NewPowerBus(),
		"i2c1": NewHostI2C(),
	})
}

// NewPowerBus returns a host bus with the charger and fuel gauge attached.
func NewPowerBus() *HostI2C {
	b := NewHostI2C()
	b.Attach(bq24193.AddressDefault, map[byte]byte{
		bq24193.RegPowerOnConfig: 0x1B,
		bq24193.RegChargeVoltage: bq24193.ChargeVoltageStockCode,
		bq24193.RegVendorPartRev: 0x2F,
	})
	b.Attach(addrMax17050, nil)
	return b
}
