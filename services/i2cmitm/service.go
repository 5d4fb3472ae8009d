// Package i2cmitm serves the intercepting session ports on the bus. One
// loop owns the session table and handles requests in arrival order.
package i2cmitm

import (
	"context"
	"slices"
	"strings"
	"time"

	"i2cmitm-go/bus"
	"i2cmitm-go/drivers/i2c"
	"i2cmitm-go/errcode"
	"i2cmitm-go/logging"
	"i2cmitm-go/services/config"
	"i2cmitm-go/services/i2cmitm/internal/override"
	"i2cmitm-go/services/i2cmitm/internal/router"
	"i2cmitm-go/types"

	"github.com/google/uuid"
)

// MaxTransfer bounds the buffers a client may ask the service to allocate.
const MaxTransfer = 0x1000

type entry struct {
	info   types.SessionInfo
	handle router.Handle
}

type Service struct {
	conn   *bus.Connection
	router *router.Router
	ports  map[string]bool
	log    logging.Sink

	sessions map[string]*entry
	order    []string
}

// New builds the service. cfg is read once here; the override target does
// not change afterwards.
func New(conn *bus.Connection, driver i2c.Driver, cfg config.Config, log logging.Sink) *Service {
	if log == nil {
		log = logging.Discard
	}
	engine := override.NewEngine(override.Settings{Voltage: cfg.Voltage, VoltageConfig: cfg.VoltageConfig})
	ports := map[string]bool{}
	for _, p := range cfg.Ports {
		ports[p] = true
	}
	return &Service{
		conn:     conn,
		router:   router.New(driver, engine, log),
		ports:    ports,
		log:      log,
		sessions: map[string]*entry{},
	}
}

func (s *Service) Run(ctx context.Context) {
	openSub := s.conn.SubscribeQueued(topicOpenAny)
	sessSub := s.conn.SubscribeQueued(topicSessionAny)
	snapSub := s.conn.SubscribeQueued(SessionsTopic())
	defer s.conn.Unsubscribe(openSub)
	defer s.conn.Unsubscribe(sessSub)
	defer s.conn.Unsubscribe(snapSub)

	s.publishState("ready", "serving")

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			s.publishState("stopped", "context_cancelled")
			return

		case msg := <-openSub.Channel():
			port, _ := msg.Topic.At(1).(string)
			if !s.ports[port] {
				s.replyErr(msg, errcode.InvalidTopic)
				continue
			}
			req, ok := msg.Payload.(types.OpenSessionRequest)
			if !ok {
				s.replyErr(msg, errcode.InvalidPayload)
				continue
			}
			s.handleOpen(ctx, msg, port, req)

		case msg := <-sessSub.Channel():
			s.handleSession(ctx, msg)

		case msg := <-snapSub.Channel():
			s.conn.Reply(msg, s.snapshot(), false)
		}
	}
}

func (s *Service) handleOpen(ctx context.Context, msg *bus.Message, port string, req types.OpenSessionRequest) {
	if !s.router.ShouldMitm(req.Client) {
		s.replyErr(msg, errcode.Unsupported)
		return
	}
	var (
		h    router.Handle
		err  error
		info = types.SessionInfo{Port: port, ProgramID: req.Client.ProgramID}
	)
	switch req.Kind {
	case types.OpenByDeviceCode:
		info.DeviceCode = req.DeviceCode
		h, err = s.router.Open(ctx, req.DeviceCode, req.Client)
	case types.OpenByDevice:
		info.DeviceCode, _ = req.Device.DeviceCode()
		h, err = s.router.OpenDevice(ctx, req.Device, req.Client)
	case types.OpenForDev:
		info.Address = req.Address.String()
		h, err = s.router.OpenForDev(ctx, req.Address, req.Client)
	default:
		s.replyErr(msg, errcode.InvalidParams)
		return
	}
	if err != nil {
		s.conn.Reply(msg, types.OpenSessionReply{OK: false, Err: err}, false)
		return
	}

	info.ID = uuid.NewString()
	info.Intercepted = h.Intercepted
	if info.Address == "" {
		info.DeviceName = info.DeviceCode.Name()
	}
	s.sessions[info.ID] = &entry{info: info, handle: h}
	s.order = append(s.order, info.ID)
	s.conn.Reply(msg, types.OpenSessionReply{OK: true, SessionID: info.ID, Intercepted: h.Intercepted}, false)
}

func (s *Service) handleSession(ctx context.Context, msg *bus.Message) {
	if msg.Topic.Len() != 5 {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	port, _ := msg.Topic.At(1).(string)
	id, _ := msg.Topic.At(3).(string)
	op, _ := msg.Topic.At(4).(string)

	e, ok := s.sessions[id]
	if !ok || e.info.Port != port {
		s.reply(msg, nil, errcode.UnknownSession)
		return
	}
	sess := e.handle.Session

	switch op {
	case OpSend:
		req, ok := msg.Payload.(types.SendRequest)
		if !ok {
			s.reply(msg, nil, errcode.InvalidPayload)
			return
		}
		s.reply(msg, nil, sess.Send(ctx, req.Convention, req.Data, req.Option))

	case OpReceive:
		req, ok := msg.Payload.(types.ReceiveRequest)
		if !ok || req.Size < 0 || req.Size > MaxTransfer {
			s.reply(msg, nil, errcode.InvalidPayload)
			return
		}
		buf := make([]byte, req.Size)
		copy(buf, req.Buffer)
		s.reply(msg, buf, sess.Receive(ctx, req.Convention, buf, req.Option))

	case OpExecute:
		req, ok := msg.Payload.(types.ExecuteRequest)
		if !ok || req.ReceiveSize < 0 || req.ReceiveSize > MaxTransfer {
			s.reply(msg, nil, errcode.InvalidPayload)
			return
		}
		rcv := make([]byte, req.ReceiveSize)
		copy(rcv, req.Receive)
		s.reply(msg, rcv, sess.ExecuteCommandList(ctx, req.Convention, rcv, req.Commands))

	case OpRetry:
		req, ok := msg.Payload.(types.RetryPolicyRequest)
		if !ok {
			s.reply(msg, nil, errcode.InvalidPayload)
			return
		}
		s.reply(msg, nil, sess.SetRetryPolicy(ctx, req.MaxRetryCount, req.RetryIntervalUs))

	case OpClose:
		err := sess.Close()
		s.drop(id)
		s.reply(msg, nil, err)

	default:
		s.reply(msg, nil, errcode.InvalidTopic)
	}
}

// reply returns the out-buffer as the driver left it, on failure too.
func (s *Service) reply(msg *bus.Message, data []byte, err error) {
	s.conn.Reply(msg, types.TransactionReply{Data: data, Err: err}, false)
}

func (s *Service) replyErr(msg *bus.Message, code errcode.Code) {
	if !msg.CanReply() {
		return
	}
	s.conn.Reply(msg, types.ErrorReply{OK: false, Error: string(code)}, false)
}

func (s *Service) drop(id string) {
	delete(s.sessions, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
}

func (s *Service) closeAll() {
	for _, id := range s.order {
		if err := s.sessions[id].handle.Session.Close(); err != nil {
			s.log.Errorf("close session %s: %v", id, err)
		}
	}
	s.sessions = map[string]*entry{}
	s.order = nil
}

func (s *Service) snapshot() types.SessionsSnapshot {
	out := types.SessionsSnapshot{Sessions: make([]types.SessionInfo, 0, len(s.order))}
	for _, id := range s.order {
		out.Sessions = append(out.Sessions, s.sessions[id].info)
	}
	return out
}

func (s *Service) publishState(level, status string) {
	pl := types.ServiceState{Level: level, Status: status, TS: time.Now().UnixMilli()}
	s.conn.Publish(s.conn.NewMessage(StateTopic(), pl, true))
}

// Ports lists the served ports in a stable order.
func (s *Service) Ports() []string {
	out := make([]string, 0, len(s.ports))
	for p := range s.ports {
		out = append(out, p)
	}
	slices.SortFunc(out, strings.Compare)
	return out
}
