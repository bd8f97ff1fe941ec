package msg

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Topic is a category of published message.
type Topic int

const (
	// Network carries the network about to be solved.
	Network Topic = iota
	// Result carries a solved study.
	Result
)

func (t Topic) String() string {
	switch t {
	case Network:
		return "network"
	case Result:
		return "result"
	default:
		return "unknown"
	}
}

// Publisher is an interface for objects that allow subscription to their events
type Publisher interface {
	Subscribe(uuid.UUID, Topic) (<-chan Msg, error)
	Unsubscribe(uuid.UUID)
}

// Msg is the envelope passed between publisher and subscribers.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

// Topic returns the message topic
func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}

// Buffer is the per-subscriber queue depth.
const Buffer = 8

// PubSub fans published messages out to subscribers by topic. A subscriber whose queue
// is full misses the message; Publish never blocks.
type PubSub struct {
	pid  uuid.UUID
	mux  *sync.Mutex
	subs map[Topic]map[uuid.UUID]chan Msg
}

// NewPublisher returns a PubSub that stamps messages with pid.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		pid:  pid,
		mux:  &sync.Mutex{},
		subs: make(map[Topic]map[uuid.UUID]chan Msg),
	}
}

// PID returns the publisher's PID
func (p *PubSub) PID() uuid.UUID {
	return p.pid
}

// Subscribe returns a channel on which the specified topic is broadcast
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if _, ok := p.subs[topic]; !ok {
		p.subs[topic] = make(map[uuid.UUID]chan Msg)
	}
	if _, ok := p.subs[topic][pid]; ok {
		return nil, errors.New("msg: subscriber already registered for topic " + topic.String())
	}

	ch := make(chan Msg, Buffer)
	p.subs[topic][pid] = ch
	return ch, nil
}

// Unsubscribe pid from all topic broadcasts. Its channels are closed.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()

	for _, subs := range p.subs {
		if ch, ok := subs[pid]; ok {
			close(ch)
			delete(subs, pid)
		}
	}
}

// Publish sends payload to every subscriber of topic and returns how many received it.
func (p *PubSub) Publish(topic Topic, payload interface{}) int {
	p.mux.Lock()
	defer p.mux.Unlock()

	m := New(p.pid, topic, payload)
	sent := 0
	for _, ch := range p.subs[topic] {
		select {
		case ch <- m:
			sent++
		default:
		}
	}
	return sent
}
