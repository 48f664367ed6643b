// Package feed fans session lifecycle events out to web subscribers.
//
// Events are immutable copies; subscribers never see or touch live session state.
package feed

import (
	"context"
	"time"
)

type EventType string

const (
	SessionOpened  EventType = "SessionOpened"
	SessionUpdated EventType = "SessionUpdated"
	SessionFilled  EventType = "SessionFilled"
	SessionClosed  EventType = "SessionClosed"
)

type Event struct {
	Type      EventType
	SessionID string
	Kind      string
	Mode      string
	Status    string
	Members   int
	Capacity  int
	At        time.Time
}

type msg interface{ isFeedMsg() }

type subscribe struct {
	ClientID string
	Outbox   chan Event
}

type unsubscribe struct{ ClientID string }

type publish struct{ Event Event }

type count struct{ Reply chan int }

func (subscribe) isFeedMsg()   {}
func (unsubscribe) isFeedMsg() {}
func (publish) isFeedMsg()     {}
func (count) isFeedMsg()       {}

type Broadcaster struct {
	inbox   chan msg
	clients map[string]chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewBroadcaster(parent context.Context) *Broadcaster {
	ctx, cancel := context.WithCancel(parent)
	b := &Broadcaster{
		inbox:   make(chan msg, 256),
		clients: make(map[string]chan Event),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broadcaster) loop() {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case m := <-b.inbox:
			switch msg := m.(type) {
			case subscribe:
				b.clients[msg.ClientID] = msg.Outbox
			case unsubscribe:
				if ch, ok := b.clients[msg.ClientID]; ok {
					close(ch)
					delete(b.clients, msg.ClientID)
				}
			case publish:
				b.broadcast(msg.Event)
			case count:
				msg.Reply <- len(b.clients)
			}
		}
	}
}

func (b *Broadcaster) shutdown() {
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
}

func (b *Broadcaster) broadcast(ev Event) {
	for id, ch := range b.clients {
		select {
		case ch <- ev:
			//ok
		default:
			// slow subscriber, drop it
			close(ch)
			delete(b.clients, id)
		}
	}
}

// Subscribe registers out under id. out is closed when the subscriber is dropped,
// unsubscribed, or the broadcaster stops.
func (b *Broadcaster) Subscribe(ctx context.Context, id string, out chan Event) bool {
	return b.send(ctx, subscribe{ClientID: id, Outbox: out})
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.send(context.Background(), unsubscribe{ClientID: id})
}

// Publish never blocks the caller; the event is dropped if the feed is backed up.
func (b *Broadcaster) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case b.inbox <- publish{Event: ev}:
	default:
	}
}

func (b *Broadcaster) Subscribers(ctx context.Context) int {
	reply := make(chan int, 1)
	if !b.send(ctx, count{Reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return 0
	case <-b.done:
		return 0
	}
}

func (b *Broadcaster) Close() {
	b.cancel()
	<-b.done
}

func (b *Broadcaster) send(ctx context.Context, m msg) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	}
}
