// bus.go
package bus

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"i2cmitm-go/errcode"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path: a string or an int.
// "+" matches one level and "#" matches the remainder in subscriptions.
type Token = any

const (
	WildOne  = "+"
	WildRest = "#"
)

// Topic is a sequence of tokens.
type Topic []Token

func T(tokens ...Token) Topic { return Topic(tokens) }

func (t Topic) Len() int        { return len(t) }
func (t Topic) At(i int) Token  { return t[i] }
func (t Topic) Append(tokens ...Token) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, tokens...)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

func (m *Message) CanReply() bool { return len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
	q     *queue // nil for lossy subscriptions
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok Token, create bool) *node {
	if c, ok := n.children[tok]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[Token]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu   sync.Mutex
	subs *node // subscription filters
	ret  *node // retained messages by concrete topic
	qLen int

	replySeq atomic.Uint64
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		subs: &node{},
		ret:  &node{},
		qLen: queueLen,
	}
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// queue is the unbounded backlog of a queued subscription. A pump goroutine
// moves messages from items to the subscription channel and owns closing it.
type queue struct {
	mu    sync.Mutex
	items []*Message
	wake  chan struct{}
	done  chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1), done: make(chan struct{})}
}

func (q *queue) push(msg *Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) pop() (*Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return m, true
}

func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		m, ok := s.q.pop()
		if !ok {
			select {
			case <-s.q.wake:
				continue
			case <-s.q.done:
				return
			}
		}
		select {
		case s.ch <- m:
		case <-s.q.done:
			return
		}
	}
}

// release closes the subscription channel, or asks the pump to.
func (s *Subscription) release() {
	if s.q != nil {
		close(s.q.done)
		return
	}
	close(s.ch)
}

func deliver(sub *Subscription, msg *Message) {
	if sub.q != nil {
		sub.q.push(msg)
		return
	}
	select {
	case sub.ch <- msg:
	default:
		// drop oldest if queue full
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// Publish delivers a message to all subscribers whose filter matches its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := b.ret
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}

	var match func(n *node, i int)
	match = func(n *node, i int) {
		if n == nil {
			return
		}
		if c := n.children[WildRest]; c != nil {
			for _, s := range c.subs {
				deliver(s, msg)
			}
		}
		if i == len(msg.Topic) {
			for _, s := range n.subs {
				deliver(s, msg)
			}
			return
		}
		match(n.children[msg.Topic[i]], i+1)
		if msg.Topic[i] != WildOne {
			match(n.children[WildOne], i+1)
		}
	}
	match(b.subs, 0)
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subs
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	// Deliver retained messages matching the filter.
	var walk func(n *node, i int)
	walk = func(n *node, i int) {
		if n == nil {
			return
		}
		if i == len(sub.topic) {
			if n.retained != nil {
				deliver(sub, n.retained)
			}
			return
		}
		switch tok := sub.topic[i]; tok {
		case WildRest:
			var all func(n *node)
			all = func(n *node) {
				if n.retained != nil {
					deliver(sub, n.retained)
				}
				for _, c := range n.children {
					all(c)
				}
			}
			all(n)
		case WildOne:
			for _, c := range n.children {
				walk(c, i+1)
			}
		default:
			walk(n.children[tok], i+1)
		}
	}
	walk(b.ret, 0)
}

// unsubscribe removes a subscription from the trie and prunes empty nodes.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subs
	stack := make([]*node, 0, len(sub.topic))
	for _, tok := range sub.topic {
		c := n.child(tok, false)
		if c == nil {
			return
		}
		stack = append(stack, n)
		n = c
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		c := parent.children[key]
		if len(c.subs) == 0 && len(c.children) == 0 {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// SubscribeQueued is Subscribe without the drop-oldest policy: messages that
// arrive while the channel is full wait in an unbounded backlog and are
// delivered in publish order. Use it for topics that carry requests.
func (c *Connection) SubscribeQueued(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
		q:     newQueue(),
	}
	go sub.pump()
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	sub.release()
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		sub.release()
	}
}

// Reply answers a request on its ReplyTo topic.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if !req.CanReply() {
		return
	}
	c.Publish(c.NewMessage(req.ReplyTo, payload, retained))
}

// Request publishes msg with a fresh reply topic and returns the subscription
// that will receive the answer. The caller owns the subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	seq := c.bus.replySeq.Add(1)
	msg.ReplyTo = T("_reply", c.id, strconv.FormatUint(seq, 10))
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait sends a request and blocks for the first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case <-ctx.Done():
		return nil, errcode.Timeout
	case m, ok := <-sub.Channel():
		if !ok {
			return nil, errcode.Closed
		}
		return m, nil
	}
}
