// Package cmdlist encodes and decodes the packed command lists carried by
// ExecuteCommandList.
//
// Every command starts with a header byte: bits 0..1 hold the opcode and
// bits 2..7 the sub-opcode or flags. Send and Receive use bit 6 for the
// start condition and bit 7 for the stop condition.
//
//	Send:    header, length, payload[length]
//	Receive: header, length
//	Sleep:   header (opcode 2, sub-opcode 0), microseconds
//
// A list has no length field of its own; it ends with its buffer.
package cmdlist

import (
	"bytes"
	"fmt"

	"i2cmitm-go/errcode"
)

type Opcode uint8

const (
	OpSend      Opcode = 0
	OpReceive   Opcode = 1
	OpExtension Opcode = 2
)

const SubSleep = 0

const (
	opcodeMask = 0x03
	subShift   = 2
	startBit   = 1 << 6
	stopBit    = 1 << 7
)

type Kind uint8

const (
	KindSend Kind = iota
	KindReceive
	KindSleep
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindReceive:
		return "recv"
	case KindSleep:
		return "sleep"
	}
	return "unknown"
}

// Command is one decoded bus operation.
type Command struct {
	Kind  Kind
	Start bool
	Stop  bool

	Data   []byte // KindSend
	Size   uint8  // KindReceive
	Micros uint8  // KindSleep
}

func Send(start, stop bool, data ...byte) Command {
	return Command{Kind: KindSend, Start: start, Stop: stop, Data: data}
}

func Receive(start, stop bool, size uint8) Command {
	return Command{Kind: KindReceive, Start: start, Stop: stop, Size: size}
}

func Sleep(us uint8) Command { return Command{Kind: KindSleep, Micros: us} }

func (c Command) Equal(o Command) bool {
	return c.Kind == o.Kind && c.Start == o.Start && c.Stop == o.Stop &&
		bytes.Equal(c.Data, o.Data) && c.Size == o.Size && c.Micros == o.Micros
}

func malformed(cursor int, msg string) error {
	return errcode.Wrap(errcode.MalformedCommand, "cmdlist", fmt.Sprintf("offset %d: %s", cursor, msg), nil)
}

// DecodeNext decodes the command at cursor and returns it with the number of
// bytes it occupies. buf is never modified; Send data is copied out.
func DecodeNext(buf []byte, cursor int) (Command, int, error) {
	if cursor < 0 || cursor >= len(buf) {
		return Command{}, 0, malformed(cursor, "cursor outside buffer")
	}
	h := buf[cursor]
	rest := buf[cursor+1:]
	start, stop := h&startBit != 0, h&stopBit != 0

	switch Opcode(h & opcodeMask) {
	case OpSend:
		if len(rest) < 1 {
			return Command{}, 0, malformed(cursor, "send without length")
		}
		n := int(rest[0])
		if len(rest)-1 < n {
			return Command{}, 0, malformed(cursor, fmt.Sprintf("send declares %d bytes, %d left", n, len(rest)-1))
		}
		return Command{Kind: KindSend, Start: start, Stop: stop, Data: bytes.Clone(rest[1 : 1+n])}, 2 + n, nil
	case OpReceive:
		if len(rest) < 1 {
			return Command{}, 0, malformed(cursor, "receive without length")
		}
		return Command{Kind: KindReceive, Start: start, Stop: stop, Size: rest[0]}, 2, nil
	case OpExtension:
		if sub := h >> subShift; sub != SubSleep {
			return Command{}, 0, malformed(cursor, fmt.Sprintf("unknown extension 0x%02x", sub))
		}
		if len(rest) < 1 {
			return Command{}, 0, malformed(cursor, "sleep without duration")
		}
		return Command{Kind: KindSleep, Micros: rest[0]}, 2, nil
	}
	return Command{}, 0, malformed(cursor, fmt.Sprintf("unknown opcode %d", h&opcodeMask))
}

// DecodeAll decodes the whole buffer. On error it returns the commands that
// decoded cleanly before the bad one.
func DecodeAll(buf []byte) ([]Command, error) {
	var out []Command
	for cursor := 0; cursor < len(buf); {
		c, n, err := DecodeNext(buf, cursor)
		if err != nil {
			return out, err
		}
		out = append(out, c)
		cursor += n
	}
	return out, nil
}

// Encode serialises commands into the wire form.
func Encode(cmds []Command) ([]byte, error) {
	var out []byte
	for i, c := range cmds {
		var h byte
		if c.Start {
			h |= startBit
		}
		if c.Stop {
			h |= stopBit
		}
		switch c.Kind {
		case KindSend:
			if len(c.Data) > 0xFF {
				return nil, malformed(i, "send payload over 255 bytes")
			}
			out = append(out, h|byte(OpSend), byte(len(c.Data)))
			out = append(out, c.Data...)
		case KindReceive:
			out = append(out, h|byte(OpReceive), c.Size)
		case KindSleep:
			out = append(out, byte(OpExtension)|SubSleep<<subShift, c.Micros)
		default:
			return nil, malformed(i, "unknown command kind")
		}
	}
	return out, nil
}

// ReceiveTotal is the number of bytes the list reads back.
func ReceiveTotal(cmds []Command) int {
	n := 0
	for _, c := range cmds {
		if c.Kind == KindReceive {
			n += int(c.Size)
		}
	}
	return n
}
