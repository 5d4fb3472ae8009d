// Package bq24193 provides a minimal driver for the BQ24193 charger.
//
// Design notes (datasheet references):
// • I2C, 8-bit registers, register pointer then data.
// • Default 7-bit address = 0b1101011.
// • REG04 VREG: 3.504 V offset, 16 mV LSB at bit 2.
// • REG01 CHG_CONFIG 01b enables battery charging.
package bq24193

import "tinygo.org/x/drivers"

type Config struct {
	Address uint16
}

type Device struct {
	i2c  drivers.I2C
	addr uint16

	// Fixed buffers to avoid per-call heap allocations.
	w [2]byte
	r [1]byte
}

func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{i2c: i2c, addr: addr}
}

func (d *Device) Address() uint16 { return d.addr }

func (d *Device) ReadRegister(reg byte) (byte, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) WriteRegister(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	return d.i2c.Tx(d.addr, d.w[:2], nil)
}

// ---------------- Charge voltage (REG04) ----------------

// ChargeVoltage returns the programmed charge voltage in mV and the raw code.
func (d *Device) ChargeVoltage() (int, byte, error) {
	v, err := d.ReadRegister(RegChargeVoltage)
	if err != nil {
		return 0, 0, err
	}
	return DecodeChargeVoltage(v), v, nil
}

func (d *Device) SetChargeVoltage(mV int) error {
	code, err := EncodeChargeVoltage(mV)
	if err != nil {
		return err
	}
	return d.WriteRegister(RegChargeVoltage, code)
}

// ---------------- Charge enable (REG01) ----------------

func (d *Device) ChargeConfig() (ChgConfig, error) {
	v, err := d.ReadRegister(RegPowerOnConfig)
	if err != nil {
		return ChgDisable, err
	}
	return ChgConfigOf(v), nil
}

// SetChargeConfig rewrites CHG_CONFIG, leaving the other REG01 bits intact.
func (d *Device) SetChargeConfig(c ChgConfig) error {
	v, err := d.ReadRegister(RegPowerOnConfig)
	if err != nil {
		return err
	}
	v &^= chgConfigMask << chgConfigShift
	v |= byte(c&chgConfigMask) << chgConfigShift
	return d.WriteRegister(RegPowerOnConfig, v)
}
