package types

import (
	"errors"
	"testing"
)

func TestDeviceCodeName(t *testing.T) {
	cases := map[DeviceCode]string{
		DeviceCodeBq24193:  "Bq24193",
		DeviceCodeMax17050: "Max17050",
		DeviceCodeTmp451:   "Tmp451 or Nct72",
		0x12345678:         UnknownDeviceName,
	}
	for code, want := range cases {
		if got := code.Name(); got != want {
			t.Errorf("Name(0x%08x) = %q, want %q", uint32(code), got, want)
		}
	}
	if got := DeviceCodeBq24193.String(); got != "0x39000001 (Bq24193)" {
		t.Errorf("String() = %q", got)
	}
}

func TestLegacyDeviceConversion(t *testing.T) {
	code, ok := DeviceBq24193.DeviceCode()
	if !ok || code != DeviceCodeBq24193 {
		t.Fatalf("DeviceBq24193 -> 0x%08x, %v", uint32(code), ok)
	}
	code, ok = DeviceIna226VddDdr0V6.DeviceCode()
	if !ok || code != DeviceCodeIna226VddDdr0V6 {
		t.Fatalf("last entry -> 0x%08x, %v", uint32(code), ok)
	}
	if _, ok := Device(200).DeviceCode(); ok {
		t.Fatal("out of range device converted")
	}
}

func TestTransactionOption(t *testing.T) {
	if !OptionStartStop.Start() || !OptionStartStop.Stop() {
		t.Fatal("start/stop flags lost")
	}
	if OptionStartCondition.Stop() {
		t.Fatal("start-only reported stop")
	}
}

func TestResultOf(t *testing.T) {
	r := MakeResult(ModuleI2C, 5)
	if r.Module() != ModuleI2C || r.Description() != 5 {
		t.Fatalf("module/description = %d/%d", r.Module(), r.Description())
	}
	if ResultOf(nil) != ResultSuccess {
		t.Fatal("nil should be success")
	}
	if ResultOf(r) != r {
		t.Fatal("Result should round trip")
	}
	if ResultOf(errors.New("x")) == ResultSuccess {
		t.Fatal("plain error must not render as success")
	}
}
