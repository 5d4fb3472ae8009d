// Package bq24193 provides register addresses and bitfields of the BQ24193
// single-cell switch-mode charger.
package bq24193

const (
	// 7-bit I2C address (1101_011b).
	AddressDefault = 0x6B

	// --- Register addresses (8-bit registers) ---
	RegInputSource     = 0x00 // R/W
	RegPowerOnConfig   = 0x01 // R/W (CHG_CONFIG bits 5:4)
	RegChargeCurrent   = 0x02 // R/W
	RegPrechargeTerm   = 0x03 // R/W
	RegChargeVoltage   = 0x04 // R/W (VREG bits 7:2, BATLOWV bit 1, VRECHG bit 0)
	RegTermTimer       = 0x05 // R/W
	RegThermalReg      = 0x06 // R/W
	RegMiscOperation   = 0x07 // R/W
	RegSystemStatus    = 0x08 // R
	RegFault           = 0x09 // R
	RegVendorPartRev   = 0x0A // R
	chgConfigShift     = 4
	chgConfigMask      = 0x3
	vregLowBit         = 2
	vregHighBit        = 7
	batLowV3V0         = 0x02 // BATLOWV = 3.0V
	chargeVoltageStock = 0xB2 // 4208 mV, firmware default
)

// ChargeVoltage limits in mV.
const (
	ChargeVoltageMin     = 3504
	ChargeVoltageMax     = 4400
	ChargeVoltageDefault = 4200

	// ChargeVoltageStockCode is the REG04 value stock firmware writes.
	ChargeVoltageStockCode byte = chargeVoltageStock
)

// ChgConfig is the CHG_CONFIG field of REG01.
type ChgConfig uint8

const (
	ChgDisable ChgConfig = iota
	ChgCharge
	ChgOTG
)
