// bus/bus_test.go
package bus

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"i2cmitm-go/errcode"
)

const (
	tokService = "i2cmitm"
	tokPort    = "i2c"
)

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T(tokService, tokPort, "open"))
	conn.Publish(conn.NewMessage(T(tokService, tokPort, "open"), "bq24193", false))

	expectOneOf(t, sub, "bq24193")
}

func TestRetainedState(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T(tokService, "state"), "ready", true))
	sub := conn.Subscribe(T(tokService, "state"))
	expectOneOf(t, sub, "ready")

	// nil payload clears the retained value
	conn.Publish(conn.NewMessage(T(tokService, "state"), nil, true))
	late := conn.Subscribe(T(tokService, "state"))
	expectNoMessage(t, late)
}

// -----------------------------------------------------------------------------
// Wildcards
// -----------------------------------------------------------------------------

func TestWildcard_SessionOps(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("svc")

	anyOp := c.Subscribe(T(tokService, "+", "session", "+", "+"))
	sendOnly := c.Subscribe(T(tokService, "+", "session", "+", "send"))
	pcv := c.Subscribe(T(tokService, "i2c:pcv", "#"))

	c.Publish(b.NewMessage(T(tokService, tokPort, "session", "s1", "send"), "m1", false))
	expectOneOf(t, anyOp, "m1")
	expectOneOf(t, sendOnly, "m1")
	expectNoMessage(t, pcv)

	c.Publish(b.NewMessage(T(tokService, "i2c:pcv", "session", "s2", "receive"), "m2", false))
	expectOneOf(t, anyOp, "m2")
	expectOneOf(t, pcv, "m2")
	expectNoMessage(t, sendOnly)

	// too short for the five-level filter
	c.Publish(b.NewMessage(T(tokService, tokPort, "session"), "m3", false))
	expectNoMessage(t, anyOp)
	expectNoMessage(t, sendOnly)
}

func TestWildcard_MultiLevelIncludesParent(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	all := c.Subscribe(T("#"))
	svc := c.Subscribe(T(tokService, "#"))
	exact := c.Subscribe(T(tokService))

	c.Publish(b.NewMessage(T(tokService), "p1", false))
	expectOneOf(t, all, "p1")
	expectOneOf(t, svc, "p1")
	expectOneOf(t, exact, "p1")

	c.Publish(b.NewMessage(T(tokService, "sessions"), "p2", false))
	expectOneOf(t, all, "p2")
	expectOneOf(t, svc, "p2")
	expectNoMessage(t, exact)
}

func TestWildcard_RetainedDelivery(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("a"), "r0", true))
	c.Publish(b.NewMessage(T("a", "b"), "r1", true))
	c.Publish(b.NewMessage(T("a", "b", "c"), "r2", true))
	c.Publish(b.NewMessage(T("a", "x"), "r3", true))

	gotAll := drainPayloads(t, c.Subscribe(T("a", "#")), 4)
	assertUnorderedEqual(t, gotAll, []string{"r0", "r1", "r2", "r3"})

	gotPH := drainPayloads(t, c.Subscribe(T("a", "+", "#")), 3)
	assertUnorderedEqual(t, gotPH, []string{"r1", "r2", "r3"})

	gotP := drainPayloads(t, c.Subscribe(T("a", "+")), 2)
	assertUnorderedEqual(t, gotP, []string{"r1", "r3"})
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	s := c.Subscribe(T(tokService, tokPort, "open"))
	c.Unsubscribe(s)
	if _, ok := <-s.Channel(); ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// publishing after unsubscribe must not panic on the closed channel
	c.Publish(b.NewMessage(T(tokService, tokPort, "open"), "late", false))
	// double unsubscribe is a no-op
	c.Unsubscribe(s)
}

func TestQueueFull_DropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("q"))

	for _, p := range []string{"a", "b", "c"} {
		c.Publish(b.NewMessage(T("q"), p, false))
	}
	got := drainPayloads(t, s, 2)
	if got[0] != "b" || got[1] != "c" {
		t.Fatalf("expected [b c], got %v", got)
	}
}

func TestQueued_KeepsEveryMessageInOrder(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.SubscribeQueued(T("q"))

	var want []string
	for i := 0; i < 50; i++ {
		p := strconv.Itoa(i)
		want = append(want, p)
		c.Publish(b.NewMessage(T("q"), p, false))
	}
	got := drainPayloads(t, s, len(want))
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v", i, got)
		}
	}
}

func TestQueued_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(1)
	c := b.NewConnection("test")
	s := c.SubscribeQueued(T("q"))
	for _, p := range []string{"a", "b", "c"} {
		c.Publish(b.NewMessage(T("q"), p, false))
	}
	c.Unsubscribe(s)

	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case _, ok := <-s.Channel():
			if !ok {
				c.Publish(b.NewMessage(T("q"), "late", false))
				c.Unsubscribe(s)
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after unsubscribe")
		}
	}
}

// -----------------------------------------------------------------------------
// Request–Reply
// -----------------------------------------------------------------------------

func TestRequestReply_RequestWait(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("client")
	respConn := b.NewConnection("service")

	reqTopic := T(tokService, tokPort, "open")
	respSub := respConn.Subscribe(reqTopic)
	defer respConn.Unsubscribe(respSub)

	go func() {
		if msg, ok := <-respSub.Channel(); ok {
			respConn.Reply(msg, "OK", false)
		}
	}()

	req := b.NewMessage(reqTopic, nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	reply, err := reqConn.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error waiting for reply: %v", err)
	}
	if got, ok := reply.Payload.(string); !ok || got != "OK" {
		t.Fatalf("unexpected reply payload: %#v", reply.Payload)
	}
	if !topicsEqual(reply.Topic, req.ReplyTo) {
		t.Fatalf("reply topic %v != request ReplyTo %v", reply.Topic, req.ReplyTo)
	}
}

func TestRequestReply_Timeout(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("client")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := reqConn.RequestWait(ctx, b.NewMessage(T(tokService, "noop"), nil, false))
	if err != errcode.Timeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestRequestReply_DistinctReplyTopics(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("client")

	m1 := b.NewMessage(T("x"), nil, false)
	m2 := b.NewMessage(T("x"), nil, false)
	s1 := c.Request(m1)
	s2 := c.Request(m2)
	defer c.Unsubscribe(s1)
	defer c.Unsubscribe(s2)

	if topicsEqual(m1.ReplyTo, m2.ReplyTo) {
		t.Fatalf("reply topics collide: %v", m1.ReplyTo)
	}
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func topicsEqual(a, b Topic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(60 * time.Millisecond):
	}
}

func drainPayloads(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if s, ok := m.Payload.(string); ok {
				out = append(out, s)
			} else {
				t.Fatalf("non-string payload in drain: %#v", m.Payload)
			}
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(out) != n {
		t.Fatalf("drainPayloads: expected %d messages, got %d (%v)", n, len(out), out)
	}
	return out
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %q, want %q (got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}
