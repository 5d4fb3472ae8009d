package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"i2cmitm-go/errcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVoltageCmd(t *testing.T) {
	out, err := run(t, "voltage", "4200")
	require.NoError(t, err)
	assert.Equal(t, "voltage: 4200 mV, voltage config: 0xae, programs: 4192 mV\n", out)

	_, err = run(t, "voltage", "5000")
	assert.Equal(t, errcode.InvalidConfig, errcode.Of(err))
}

func TestDecodeCmd(t *testing.T) {
	out, err := run(t, "decode", "0x40,0x01,0x04", "c1 01")
	require.NoError(t, err)
	assert.Equal(t, "2 commands, receives 1 bytes: [[send, len: 0x01, data: [0x04]], [recv, len: 0x01]]\n", out)

	out, err = run(t, "decode", "40 05 04")
	assert.ErrorIs(t, err, errcode.MalformedCommand)
	assert.True(t, strings.HasPrefix(out, "0 commands"))

	_, err = run(t, "decode", "zz")
	assert.Error(t, err)
}

func TestSelftestCmd(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.ini")
	out, err := run(t, "selftest", "--config", missing, "--voltage", "4200")
	require.NoError(t, err, out)
	assert.Contains(t, out, "i2c mitm config: voltage: 4200, voltage config: 0xae")
	assert.Contains(t, out, "intercepted: true")
	assert.Contains(t, out, "charger REG04: 0xae (4192 mV)")
	assert.Contains(t, out, "selftest ok")
}

func TestSelftestCmd_ConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "i2c_mitm.ini")
	require.NoError(t, os.WriteFile(p, []byte("[battery]\nchrg_voltage=4400\n"), 0o644))
	out, err := run(t, "selftest", "--config", p)
	require.NoError(t, err, out)
	assert.Contains(t, out, "charger REG04: 0xe2 (4400 mV)")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "i2cmitm dev (unknown)\n", out)
}

func TestParseHex(t *testing.T) {
	raw, err := parseHex("0x4, 01 0xC1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x01, 0xC1}, raw)
}
