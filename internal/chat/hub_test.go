package chat_test

import (
	"testing"

	"github.com/omochice/minechat/internal/chat"
)

func TestHub_Register(t *testing.T) {
	hub := chat.NewHub()
	hub.Register(chat.NewSubscriber(newMockConn(), 10))

	if got := hub.SubscriberCount(); got != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", got)
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := chat.NewHub()
	s := chat.NewSubscriber(newMockConn(), 10)

	hub.Register(s)
	hub.Unregister(s)

	if got := hub.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", got)
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := chat.NewHub()

	subs := make([]*chat.Subscriber, 3)
	for i := range subs {
		subs[i] = chat.NewSubscriber(newMockConn(), 10)
		hub.Register(subs[i])
	}

	if got := hub.Broadcast("alice: hi"); got != 3 {
		t.Errorf("Broadcast() delivered to %d, want 3", got)
	}
	for i, s := range subs {
		if line := <-s.Outgoing; line != "alice: hi" {
			t.Errorf("subscriber %d got %q", i, line)
		}
	}
}

func TestHub_BroadcastSkipsFullQueue(t *testing.T) {
	hub := chat.NewHub()
	slow := chat.NewSubscriber(newMockConn(), 1)
	fast := chat.NewSubscriber(newMockConn(), 10)
	hub.Register(slow)
	hub.Register(fast)

	hub.Broadcast("first")
	if got := hub.Broadcast("second"); got != 1 {
		t.Errorf("Broadcast() delivered to %d, want 1", got)
	}
	if got := len(fast.Outgoing); got != 2 {
		t.Errorf("fast subscriber queued %d lines, want 2", got)
	}
}
