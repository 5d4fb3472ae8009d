package host

import (
	"context"
	"io/fs"
	"testing"

	"i2cmitm-go/drivers/bq24193"
	"i2cmitm-go/drivers/i2c/cmdlist"
	"i2cmitm-go/errcode"
	"i2cmitm-go/platform"
	"i2cmitm-go/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers"
)

func newDriver(t *testing.T) (*Driver, *platform.HostI2C) {
	t.Helper()
	bus := platform.NewPowerBus()
	f := platform.HostFactory(map[string]*platform.HostI2C{"i2c0": bus})
	return New(f, nil), bus
}

func TestOpenSession_ByDeviceCode(t *testing.T) {
	d, _ := newDriver(t)
	s, err := d.OpenSession(context.Background(), types.DeviceCodeBq24193)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x6B), s.(*Session).Address().Slave)
	assert.Equal(t, 1, d.Open())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, d.Open())
}

func TestOpenSession_Errors(t *testing.T) {
	d, _ := newDriver(t)
	ctx := context.Background()

	_, err := d.OpenSession(ctx, types.DeviceCodeMillauNfc)
	assert.ErrorIs(t, err, errcode.UnknownDevice)

	_, err = d.OpenSession(ctx, types.DeviceCodeMax77620Pmic) // bus 4 not present
	assert.ErrorIs(t, err, errcode.UnknownBus)

	_, err = d.OpenSessionForDev(ctx, types.BusAddress{Bus: 0, Slave: 0x80})
	assert.ErrorIs(t, err, errcode.InvalidParams)
}

type deniedBuses struct{}

func (deniedBuses) ByID(string) (drivers.I2C, bool)  { return nil, false }
func (deniedBuses) Open(string) (drivers.I2C, error) { return nil, fs.ErrPermission }

func TestOpenSessionForDev_BusOpenCause(t *testing.T) {
	d := New(deniedBuses{}, nil)
	_, err := d.OpenSession(context.Background(), types.DeviceCodeBq24193)
	assert.ErrorIs(t, err, errcode.UnknownBus)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, 0, d.Open())
}

func TestSendReceive_RepeatedStart(t *testing.T) {
	d, bus := newDriver(t)
	ctx := context.Background()
	s, err := d.OpenSession(ctx, types.DeviceCodeBq24193)
	require.NoError(t, err)

	require.NoError(t, s.Send(ctx, types.ConventionAutoSelect, []byte{0x04, 0xAE}, types.OptionStartStop))
	v, _ := bus.Register(0x6B, 0x04)
	assert.Equal(t, byte(0xAE), v)

	require.NoError(t, s.Send(ctx, types.ConventionLegacy, []byte{0x04}, types.OptionStartCondition))
	buf := make([]byte, 1)
	require.NoError(t, s.Receive(ctx, types.ConventionLegacy, buf, types.OptionStartStop))
	assert.Equal(t, []byte{0xAE}, buf)

	h := bus.History()
	require.Len(t, h, 2)
	assert.Equal(t, []byte{0x04}, h[1].W)
	assert.Equal(t, 1, h[1].Rn)
}

func TestExecuteCommandList(t *testing.T) {
	d, bus := newDriver(t)
	ctx := context.Background()
	s, err := d.OpenSession(ctx, types.DeviceCodeBq24193)
	require.NoError(t, err)

	raw, err := cmdlist.Encode([]cmdlist.Command{
		cmdlist.Send(true, true, bq24193.RegChargeVoltage, 0x06),
		cmdlist.Sleep(1),
		cmdlist.Send(true, false, bq24193.RegPowerOnConfig),
		cmdlist.Receive(true, true, 1),
		cmdlist.Send(true, false, bq24193.RegChargeVoltage),
		cmdlist.Receive(true, true, 1),
	})
	require.NoError(t, err)

	rcv := make([]byte, 2)
	require.NoError(t, s.ExecuteCommandList(ctx, types.ConventionAutoSelect, rcv, raw))
	assert.Equal(t, []byte{0x1B, 0x06}, rcv)
	assert.Len(t, bus.History(), 3)
}

func TestExecuteCommandList_Errors(t *testing.T) {
	d, bus := newDriver(t)
	ctx := context.Background()
	s, err := d.OpenSession(ctx, types.DeviceCodeBq24193)
	require.NoError(t, err)

	err = s.ExecuteCommandList(ctx, types.ConventionLegacy, nil, []byte{0x00, 0x05, 0x01})
	assert.ErrorIs(t, err, errcode.MalformedCommand)

	err = s.ExecuteCommandList(ctx, types.ConventionLegacy, make([]byte, 1), []byte{0x41, 0x02})
	assert.ErrorIs(t, err, errcode.BufferTooSmall)
	assert.Empty(t, bus.History())
}

func TestSession_MissingSlaveErrorPassesThrough(t *testing.T) {
	d, _ := newDriver(t)
	ctx := context.Background()
	s, err := d.OpenSessionForDev(ctx, types.BusAddress{Bus: 0, Slave: 0x22})
	require.NoError(t, err)
	err = s.Send(ctx, types.ConventionAutoSelect, []byte{0x00}, types.OptionStartStop)
	assert.Equal(t, errcode.NoDevice, err)
}

func TestSetRetryPolicyAndClose(t *testing.T) {
	d, _ := newDriver(t)
	ctx := context.Background()
	s, err := d.OpenSession(ctx, types.DeviceCodeMax17050)
	require.NoError(t, err)

	require.NoError(t, s.SetRetryPolicy(ctx, 3, 500))
	n, us := s.(*Session).RetryPolicy()
	assert.Equal(t, int32(3), n)
	assert.Equal(t, int32(500), us)
	assert.ErrorIs(t, s.SetRetryPolicy(ctx, -1, 0), errcode.InvalidParams)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send(ctx, types.ConventionLegacy, []byte{0}, types.OptionStartStop), errcode.Closed)
}

func TestSession_CanceledContext(t *testing.T) {
	d, _ := newDriver(t)
	ctx, cancel := context.WithCancel(context.Background())
	s, err := d.OpenSession(ctx, types.DeviceCodeBq24193)
	require.NoError(t, err)
	cancel()
	assert.ErrorIs(t, s.Receive(ctx, types.ConventionLegacy, make([]byte, 1), types.OptionStartStop), context.Canceled)
}
