package cmdlist

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i2cmitm-go/errcode"
	"i2cmitm-go/logging"
	"i2cmitm-go/types"
)

func TestDecodeNext_Shapes(t *testing.T) {
	buf := []byte{
		0x40, 0x01, 0x04, // send start, [0x04]
		0xC1, 0x01, // recv start+stop, 1 byte
		0x02, 0x0A, // sleep 10us
	}

	c, n, err := DecodeNext(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, c.Equal(Send(true, false, 0x04)))

	c, n, err = DecodeNext(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, c.Equal(Receive(true, true, 1)))

	c, n, err = DecodeNext(buf, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, c.Equal(Sleep(10)))
}

func TestDecodeAll_RoundTrip(t *testing.T) {
	lists := [][]Command{
		{Send(true, true, 0x04, 0xB2)},
		{Send(true, false, 0x08), Receive(true, true, 1)},
		{Send(true, false), Sleep(200), Receive(false, true, 255)},
		{},
	}
	for _, want := range lists {
		raw, err := Encode(want)
		require.NoError(t, err)

		got, err := DecodeAll(raw)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Truef(t, got[i].Equal(want[i]), "command %d: got %+v want %+v", i, got[i], want[i])
		}
		// decoding is restartable from the same buffer
		again, err := DecodeAll(raw)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"send without length":   {0x40},
		"send payload truncated": {0x40, 0x03, 0x01, 0x02},
		"recv without length":   {0x01},
		"sleep without duration": {0x02},
		"unknown opcode":        {0x03, 0x00},
		"unknown extension":     {0x06, 0x00},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAll(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errcode.MalformedCommand))
		})
	}

	_, _, err := DecodeNext([]byte{0x01, 0x01}, 2)
	assert.True(t, errors.Is(err, errcode.MalformedCommand))
}

func TestDecode_DoesNotAlias(t *testing.T) {
	raw := []byte{0x40, 0x02, 0x04, 0xB2}
	cmds, err := DecodeAll(raw)
	require.NoError(t, err)
	cmds[0].Data[1] = 0x00
	assert.Equal(t, byte(0xB2), raw[3], "decoder must not hand out views of the sent buffer")
}

func TestDecodeAll_PartialOnError(t *testing.T) {
	raw := []byte{0x40, 0x01, 0x04, 0x40, 0x05, 0x00}
	cmds, err := DecodeAll(raw)
	require.Error(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, []byte{0x04}, cmds[0].Data)
}

func TestEncode_RejectsLongSend(t *testing.T) {
	_, err := Encode([]Command{Send(true, true, make([]byte, 256)...)})
	assert.True(t, errors.Is(err, errcode.MalformedCommand))
}

func TestReceiveTotal(t *testing.T) {
	assert.Equal(t, 5, ReceiveTotal([]Command{Receive(true, false, 2), Send(false, false, 1), Receive(false, true, 3)}))
}

func TestFormatForLog(t *testing.T) {
	cmds := []Command{Send(true, false, 0x04), Receive(true, true, 1), Sleep(5)}
	got := FormatForLog(cmds, nil, []byte{0xB2})
	assert.Equal(t,
		"result: 0x00000000, commands: [[send, len: 0x01, data: [0x04]], [recv, len: 0x01], [sleep, us: 0x05]], recv data: [0xb2]",
		got)

	failed := FormatForLog(nil, types.MakeResult(types.ModuleI2C, 3), nil)
	assert.True(t, strings.HasPrefix(failed, "result: 0x"))
	assert.NotContains(t, failed, "recv data")
}

func TestFormatForLog_Bounded(t *testing.T) {
	var cmds []Command
	for i := 0; i < 64; i++ {
		cmds = append(cmds, Send(true, true, make([]byte, 32)...))
	}
	got := FormatForLog(cmds, nil, make([]byte, 255))
	assert.Len(t, got, logging.MaxLine)
}

func TestAppendBuffer_BestEffort(t *testing.T) {
	l := logging.NewLine(0)
	AppendBuffer(l, []byte{0x40, 0x01, 0x04, 0x40, 0x09})
	out := l.String()
	assert.Contains(t, out, "[send, len: 0x01, data: [0x04]]")
	assert.Contains(t, out, "malformed_command")
}

func TestAppendForLog(t *testing.T) {
	l := logging.NewLine(0).Printf("hdr: ")
	AppendForLog(l, []byte{0x40, 0x01, 0x04, 0xC1, 0x01}, nil, []byte{0xAE})
	assert.Equal(t,
		"hdr: result: 0x00000000, commands: [[send, len: 0x01, data: [0x04]], [recv, len: 0x01]], recv data: [0xae]",
		l.String())
}
