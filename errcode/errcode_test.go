package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]error{
		"malformed_command": MalformedCommand,
		"invalid_config":    InvalidConfig,
		"unknown_device":    UnknownDevice,
		"unknown_session":   UnknownSession,
		"buffer_too_small":  BufferTooSmall,
		"no_device":         NoDevice,
		"closed":            Closed,
	}
	for want, e := range cases {
		if e == nil || e.Error() != want {
			t.Fatalf("code %q mismatch: got %#v", want, e)
		}
	}
}

func TestOf(t *testing.T) {
	if got := Of(nil); got != OK {
		t.Fatalf("Of(nil) = %q, want ok", got)
	}
	if got := Of(InvalidConfig); got != InvalidConfig {
		t.Fatalf("Of(code) = %q", got)
	}
	wrapped := Wrap(MalformedCommand, "decode", "truncated send", nil)
	if got := Of(fmt.Errorf("log: %w", wrapped)); got != MalformedCommand {
		t.Fatalf("Of(wrapped) = %q", got)
	}
	if got := Of(errors.New("boom")); got != Error {
		t.Fatalf("Of(plain) = %q", got)
	}
}

func TestEIsCode(t *testing.T) {
	err := Wrap(UnknownDevice, "open", "0x12345678", nil)
	if !errors.Is(err, UnknownDevice) {
		t.Fatal("errors.Is should match the wrapped code")
	}
	if errors.Is(err, UnknownBus) {
		t.Fatal("errors.Is matched the wrong code")
	}
	if err.Error() != "open: unknown_device: 0x12345678" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
