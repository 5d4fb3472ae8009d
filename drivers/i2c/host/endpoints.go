package host

import "i2cmitm-go/types"

// Endpoint is where a device code lives on the board.
type Endpoint struct {
	Bus   int32
	Slave uint16
	Speed types.SpeedMode
}

func (e Endpoint) Address() types.BusAddress {
	return types.BusAddress{Bus: e.Bus, Slave: e.Slave, Addressing: types.AddressingSevenBit, Speed: e.Speed}
}

// DefaultEndpoints is the board wiring for the device codes the host driver
// can open. Codes missing here fail with errcode.UnknownDevice.
var DefaultEndpoints = map[types.DeviceCode]Endpoint{
	types.DeviceCodeBq24193:       {Bus: 0, Slave: 0x6B, Speed: types.SpeedFast},
	types.DeviceCodeMax17050:      {Bus: 0, Slave: 0x36, Speed: types.SpeedFast},
	types.DeviceCodeTmp451:        {Bus: 1, Slave: 0x4C, Speed: types.SpeedFast},
	types.DeviceCodeAlc5639:       {Bus: 1, Slave: 0x1C, Speed: types.SpeedFast},
	types.DeviceCodeMax77620Rtc:   {Bus: 4, Slave: 0x68, Speed: types.SpeedFast},
	types.DeviceCodeMax77620Pmic:  {Bus: 4, Slave: 0x3C, Speed: types.SpeedFast},
	types.DeviceCodeMax77621Cpu:   {Bus: 4, Slave: 0x1B, Speed: types.SpeedFast},
	types.DeviceCodeMax77621Gpu:   {Bus: 4, Slave: 0x1C, Speed: types.SpeedFast},
	types.DeviceCodeBm92t30mwv:    {Bus: 0, Slave: 0x18, Speed: types.SpeedFast},
	types.DeviceCodeIna226VsysAp:  {Bus: 1, Slave: 0x40, Speed: types.SpeedFast},
	types.DeviceCodeBh1730:        {Bus: 1, Slave: 0x29, Speed: types.SpeedFast},
	types.DeviceCodeFan53528:      {Bus: 4, Slave: 0x52, Speed: types.SpeedFast},
	types.DeviceCodeFtm3bd56:      {Bus: 2, Slave: 0x49, Speed: types.SpeedFast},
	types.DeviceCodeHdmiDdc:       {Bus: 3, Slave: 0x50, Speed: types.SpeedStandard},
	types.DeviceCodeHdmiScdc:      {Bus: 3, Slave: 0x54, Speed: types.SpeedStandard},
	types.DeviceCodeHdmiHdcp:      {Bus: 3, Slave: 0x3A, Speed: types.SpeedStandard},
}
