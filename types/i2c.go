package types

import "fmt"

// ---- Device identity ----

// DeviceCode identifies a peripheral class independent of bus wiring.
type DeviceCode uint32

const (
	DeviceCodeClassicController DeviceCode = 0x350000C9
	DeviceCodeFtm3bd56          DeviceCode = 0x35000033
	DeviceCodeTmp451            DeviceCode = 0x3E000001
	DeviceCodeNct72             DeviceCode = 0x3E000001
	DeviceCodeAlc5639           DeviceCode = 0x33000001
	DeviceCodeMax77620Rtc       DeviceCode = 0x3B000001
	DeviceCodeMax77620Pmic      DeviceCode = 0x3A000001
	DeviceCodeMax77621Cpu       DeviceCode = 0x3A000003
	DeviceCodeMax77621Gpu       DeviceCode = 0x3A000004
	DeviceCodeBq24193           DeviceCode = 0x39000001
	DeviceCodeMax17050          DeviceCode = 0x39000033
	DeviceCodeBm92t30mwv        DeviceCode = 0x040000C9
	DeviceCodeIna226Vdd15v0Hb   DeviceCode = 0x3F000401
	DeviceCodeIna226VsysCpuDs   DeviceCode = 0x3F000001
	DeviceCodeIna226VsysGpuDs   DeviceCode = 0x3F000002
	DeviceCodeIna226VsysDdrDs   DeviceCode = 0x3F000003
	DeviceCodeIna226VsysAp      DeviceCode = 0x3F000402
	DeviceCodeIna226VsysBlDs    DeviceCode = 0x3F000403
	DeviceCodeBh1730            DeviceCode = 0x35000047
	DeviceCodeIna226VsysCore    DeviceCode = 0x3F000404
	DeviceCodeIna226Soc1V8      DeviceCode = 0x3F000405
	DeviceCodeIna226Lpddr1V8    DeviceCode = 0x3F000406
	DeviceCodeIna226Reg1V32     DeviceCode = 0x3F000407
	DeviceCodeIna226Vdd3V3Sys   DeviceCode = 0x3F000408
	DeviceCodeHdmiDdc           DeviceCode = 0x34000001
	DeviceCodeHdmiScdc          DeviceCode = 0x34000002
	DeviceCodeHdmiHdcp          DeviceCode = 0x34000003
	DeviceCodeFan53528          DeviceCode = 0x3A000005
	DeviceCodeMax77812_3        DeviceCode = 0x3A000002
	DeviceCodeMax77812_2        DeviceCode = 0x3A000006
	DeviceCodeIna226VddDdr0V6   DeviceCode = 0x3F000409
	DeviceCodeMillauNfc         DeviceCode = 0x36000001
	DeviceCodeMax77801          DeviceCode = 0x3A000007
)

// UnknownDeviceName is the label for codes missing from the name table.
const UnknownDeviceName = "Unknown"

// Read-only after init; never mutated.
var deviceNames = map[DeviceCode]string{
	DeviceCodeClassicController: "ClassicController",
	DeviceCodeFtm3bd56:          "Ftm3bd56",
	DeviceCodeTmp451:            "Tmp451 or Nct72",
	DeviceCodeAlc5639:           "Alc5639",
	DeviceCodeMax77620Rtc:       "Max77620Rtc",
	DeviceCodeMax77620Pmic:      "Max77620Pmic",
	DeviceCodeMax77621Cpu:       "Max77621Cpu",
	DeviceCodeMax77621Gpu:       "Max77621Gpu",
	DeviceCodeBq24193:           "Bq24193",
	DeviceCodeMax17050:          "Max17050",
	DeviceCodeBm92t30mwv:        "Bm92t30mwv",
	DeviceCodeIna226Vdd15v0Hb:   "Ina226Vdd15v0Hb",
	DeviceCodeIna226VsysCpuDs:   "Ina226VsysCpuDs or Ina226VddCpuAp (SdevMariko)",
	DeviceCodeIna226VsysGpuDs:   "Ina226VsysGpuDs or Ina226VddGpuAp (SdevMariko)",
	DeviceCodeIna226VsysDdrDs:   "Ina226VsysDdrDs or Ina226VddDdr1V1Pmic (SdevMariko)",
	DeviceCodeIna226VsysAp:      "Ina226VsysAp",
	DeviceCodeIna226VsysBlDs:    "Ina226VsysBlDs",
	DeviceCodeBh1730:            "Bh1730",
	DeviceCodeIna226VsysCore:    "Ina226VsysCore or Ina226VddCoreAp (SdevMariko)",
	DeviceCodeIna226Soc1V8:      "Ina226Soc1V8 or Ina226VddSoc1V8 (SdevMariko)",
	DeviceCodeIna226Lpddr1V8:    "Ina226Lpddr1V8 or Ina226Vdd1V8 (SdevMariko)",
	DeviceCodeIna226Reg1V32:     "Ina226Reg1V32",
	DeviceCodeIna226Vdd3V3Sys:   "Ina226Vdd3V3Sys",
	DeviceCodeHdmiDdc:           "HdmiDdc",
	DeviceCodeHdmiScdc:          "HdmiScdc",
	DeviceCodeHdmiHdcp:          "HdmiHdcp",
	DeviceCodeFan53528:          "Fan53528",
	DeviceCodeMax77812_3:        "Max77812Pmic",
	DeviceCodeMax77812_2:        "Max77812Pmic",
	DeviceCodeIna226VddDdr0V6:   "Ina226VddDdr0V6 (SdevMariko)",
	DeviceCodeMillauNfc:         "MillauNfc",
	DeviceCodeMax77801:          "Max77801",
}

// Name returns the diagnostic label for the code. Only used for logs.
func (c DeviceCode) Name() string {
	if n, ok := deviceNames[c]; ok {
		return n
	}
	return UnknownDeviceName
}

func (c DeviceCode) String() string { return fmt.Sprintf("0x%08x (%s)", uint32(c), c.Name()) }

// Device is the legacy enumeration accepted by OpenSession.
type Device uint32

const (
	DeviceClassicController Device = iota
	DeviceFtm3bd56
	DeviceTmp451
	DeviceNct72
	DeviceAlc5639
	DeviceMax77620Rtc
	DeviceMax77620Pmic
	DeviceMax77621Cpu
	DeviceMax77621Gpu
	DeviceBq24193
	DeviceMax17050
	DeviceBm92t30mwv
	DeviceIna226Vdd15v0Hb
	DeviceIna226VsysCpuDs
	DeviceIna226VsysGpuDs
	DeviceIna226VsysDdrDs
	DeviceIna226VsysAp
	DeviceIna226VsysBlDs
	DeviceBh1730
	DeviceIna226VsysCore
	DeviceIna226Soc1V8
	DeviceIna226Lpddr1V8
	DeviceIna226Reg1V32
	DeviceIna226Vdd3V3Sys
	DeviceHdmiDdc
	DeviceHdmiScdc
	DeviceHdmiHdcp
	DeviceFan53528
	DeviceMax77812_3
	DeviceMax77812_2
	DeviceIna226VddDdr0V6
	deviceCount
)

var legacyDeviceCodes = [deviceCount]DeviceCode{
	DeviceCodeClassicController, DeviceCodeFtm3bd56, DeviceCodeTmp451, DeviceCodeNct72,
	DeviceCodeAlc5639, DeviceCodeMax77620Rtc, DeviceCodeMax77620Pmic, DeviceCodeMax77621Cpu,
	DeviceCodeMax77621Gpu, DeviceCodeBq24193, DeviceCodeMax17050, DeviceCodeBm92t30mwv,
	DeviceCodeIna226Vdd15v0Hb, DeviceCodeIna226VsysCpuDs, DeviceCodeIna226VsysGpuDs,
	DeviceCodeIna226VsysDdrDs, DeviceCodeIna226VsysAp, DeviceCodeIna226VsysBlDs,
	DeviceCodeBh1730, DeviceCodeIna226VsysCore, DeviceCodeIna226Soc1V8,
	DeviceCodeIna226Lpddr1V8, DeviceCodeIna226Reg1V32, DeviceCodeIna226Vdd3V3Sys,
	DeviceCodeHdmiDdc, DeviceCodeHdmiScdc, DeviceCodeHdmiHdcp, DeviceCodeFan53528,
	DeviceCodeMax77812_3, DeviceCodeMax77812_2, DeviceCodeIna226VddDdr0V6,
}

// DeviceCode converts the legacy enum. ok is false for values past the table.
func (d Device) DeviceCode() (DeviceCode, bool) {
	if d >= deviceCount {
		return 0, false
	}
	return legacyDeviceCodes[d], true
}

// ---- Raw addressing ----

type AddressingMode uint32

const AddressingSevenBit AddressingMode = 0

type SpeedMode uint32

const (
	SpeedStandard SpeedMode = 100_000
	SpeedFast     SpeedMode = 400_000
	SpeedFastPlus SpeedMode = 1_000_000
	SpeedHigh     SpeedMode = 3_400_000
)

// BusAddress names a physical endpoint for OpenSessionForDev.
type BusAddress struct {
	Bus        int32          `json:"bus"`
	Slave      uint16         `json:"slave"`
	Addressing AddressingMode `json:"addressing"`
	Speed      SpeedMode      `json:"speed"`
}

func (a BusAddress) String() string {
	return fmt.Sprintf("idx: %d, addr: 0x%02x", a.Bus, a.Slave)
}

// ---- Transactions ----

// TransactionOption carries start/stop condition flags for single transfers.
type TransactionOption uint32

const (
	OptionStartCondition TransactionOption = 1 << 0
	OptionStopCondition  TransactionOption = 1 << 1

	OptionStartStop = OptionStartCondition | OptionStopCondition
)

func (o TransactionOption) Start() bool { return o&OptionStartCondition != 0 }
func (o TransactionOption) Stop() bool  { return o&OptionStopCondition != 0 }

// ---- Clients ----

// ProgramID identifies the client process that opened a session.
type ProgramID uint64

// ClientInfo describes the caller of an open request.
type ClientInfo struct {
	ProgramID ProgramID `json:"program_id"`
}
