package cmdlist

import (
	"i2cmitm-go/logging"
	"i2cmitm-go/types"
)

// AppendCommands renders cmds onto l as "[send, len: 0x02, data: [...]], [recv, len: 0x01]".
func AppendCommands(l *logging.Line, cmds []Command) {
	for i, c := range cmds {
		if i > 0 {
			l.Printf(", ")
		}
		switch c.Kind {
		case KindSend:
			l.Printf("[send, len: 0x%02x, data: [", len(c.Data)).Hex(c.Data).Printf("]]")
		case KindReceive:
			l.Printf("[recv, len: 0x%02x]", c.Size)
		case KindSleep:
			l.Printf("[sleep, us: 0x%02x]", c.Micros)
		default:
			l.Printf("[?]")
		}
	}
}

// AppendBuffer decodes raw and renders it best-effort: commands that decode
// are printed, and a trailing marker names the first malformed offset.
func AppendBuffer(l *logging.Line, raw []byte) {
	cmds, err := DecodeAll(raw)
	AppendCommands(l, cmds)
	if err != nil {
		if len(cmds) > 0 {
			l.Printf(", ")
		}
		l.Printf("<%v>", err)
	}
}

// FormatForLog renders a decoded list with its outcome and any receive data.
// It never fails; output is cut at logging.MaxLine.
func FormatForLog(cmds []Command, result error, recv []byte) string {
	l := logging.NewLine(logging.MaxLine)
	l.Printf("result: 0x%08x, commands: [", uint32(types.ResultOf(result)))
	AppendCommands(l, cmds)
	l.Printf("]")
	appendRecv(l, recv)
	return l.String()
}

func appendRecv(l *logging.Line, recv []byte) {
	if len(recv) > 0 {
		l.Printf(", recv data: [").Hex(recv).Printf("]")
	}
}

// AppendForLog renders an undecoded list with its outcome onto l. The list
// is decoded for display only; a malformed tail degrades the text.
func AppendForLog(l *logging.Line, raw []byte, result error, recv []byte) {
	l.Printf("result: 0x%08x, commands: [", uint32(types.ResultOf(result)))
	AppendBuffer(l, raw)
	l.Printf("]")
	appendRecv(l, recv)
}
