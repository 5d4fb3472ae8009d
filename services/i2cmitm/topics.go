package i2cmitm

import "i2cmitm-go/bus"

const (
	TokRoot     = "i2cmitm"
	TokOpen     = "open"
	TokSession  = "session"
	TokSessions = "sessions"
	TokState    = "state"
)

// Session operations, the last token of a session topic.
const (
	OpSend    = "send"
	OpReceive = "receive"
	OpExecute = "execute"
	OpRetry   = "retry"
	OpClose   = "close"
)

// i2cmitm/<port>/open
func OpenTopic(port string) bus.Topic { return bus.T(TokRoot, port, TokOpen) }

// i2cmitm/<port>/session/<id>/<op>
func SessionTopic(port, id, op string) bus.Topic {
	return bus.T(TokRoot, port, TokSession, id, op)
}

func SessionsTopic() bus.Topic { return bus.T(TokRoot, TokSessions) }

// StateTopic carries the retained types.ServiceState.
func StateTopic() bus.Topic { return bus.T(TokRoot, TokState) }

var (
	topicOpenAny    = bus.T(TokRoot, "+", TokOpen)
	topicSessionAny = bus.T(TokRoot, "+", TokSession, "+", "+")
)
