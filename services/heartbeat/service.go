// Package heartbeat logs a periodic liveness line with the number of open
// proxy sessions.
package heartbeat

import (
	"context"
	"time"

	"i2cmitm-go/bus"
	"i2cmitm-go/logging"
	"i2cmitm-go/services/config"
	"i2cmitm-go/services/i2cmitm"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

type Service struct {
	log logging.Sink
}

func New(log logging.Sink) *Service {
	if log == nil {
		log = logging.Discard
	}
	return &Service{log: log}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, ticks chan<- int) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(time.Hour)
	tick.Stop()
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			qctx, cancel := context.WithTimeout(ctx, time.Second)
			list, err := i2cmitm.Sessions(qctx, conn)
			cancel()
			if err != nil {
				s.log.Errorf("heartbeat: sessions: %v", err)
				continue
			}
			s.log.Infof("heartbeat: %d open sessions", len(list))
			if ticks != nil {
				select {
				case ticks <- len(list):
				default:
				}
			}
		case msg := <-cfgSub.Channel():
			hb, ok := msg.Payload.(config.Heartbeat)
			if !ok {
				continue
			}
			if hb.Interval > 0 {
				tick.Reset(hb.Interval)
			} else {
				tick.Stop()
			}
		}
	}
}

// Start runs the heartbeat until ctx ends. It stays idle until an interval
// is published on config/heartbeat.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn, nil)
	return nil
}
