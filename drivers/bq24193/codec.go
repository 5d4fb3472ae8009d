package bq24193

import "errors"

var ErrVoltageRange = errors.New("charge voltage out of range (3504-4400 mV)")

// vregWeight returns the mV weight of REG04 bit i: 16 mV at bit 2 up to 512 mV at bit 7.
func vregWeight(bit uint) int { return 4 << bit }

// EncodeChargeVoltage maps a charge voltage onto the REG04 value.
// Bits are taken greedily from the top; a remainder under 16 mV rounds down.
// BATLOWV is always set to 3.0 V.
func EncodeChargeVoltage(mV int) (byte, error) {
	if mV < ChargeVoltageMin || mV > ChargeVoltageMax {
		return 0, ErrVoltageRange
	}
	rem := mV - ChargeVoltageMin
	code := byte(batLowV3V0)
	for bit := uint(vregHighBit); bit >= vregLowBit; bit-- {
		if w := vregWeight(bit); rem >= w {
			rem -= w
			code |= 1 << bit
		}
	}
	return code, nil
}

// DecodeChargeVoltage returns the mV value selected by a REG04 value.
func DecodeChargeVoltage(code byte) int {
	mV := ChargeVoltageMin
	for bit := uint(vregLowBit); bit <= vregHighBit; bit++ {
		if code&(1<<bit) != 0 {
			mV += vregWeight(bit)
		}
	}
	return mV
}

// ChgConfigOf extracts CHG_CONFIG from a REG01 value.
func ChgConfigOf(reg01 byte) ChgConfig {
	return ChgConfig((reg01 >> chgConfigShift) & chgConfigMask)
}

// ChargeVoltageCommand is the two-byte register write selecting code.
func ChargeVoltageCommand(code byte) []byte {
	return []byte{RegChargeVoltage, code}
}
