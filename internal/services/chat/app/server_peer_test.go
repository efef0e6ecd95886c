package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
)

type bufferConn struct {
	bytes.Buffer
	deadline    time.Time
	deadlineErr error
}

func (b *bufferConn) SetWriteDeadline(t time.Time) error {
	b.deadline = t
	return b.deadlineErr
}

func TestWSPeerDeliverWritesMessageFrame(t *testing.T) {
	conn := &bufferConn{}
	peer := newWSPeer(conn, time.Second)
	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := peer.Deliver(context.Background(), domain.OutboundMessage{
		Text:           "Привет, мир",
		OriginalText:   "Hello world",
		SourceLanguage: "en",
		Language:       "ru",
		Translated:     true,
		Sender:         domain.Identity{Subject: "user-1", DisplayName: "Ana"},
		SentAt:         sentAt,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if conn.deadline.IsZero() {
		t.Fatal("expected write deadline to be set")
	}

	var frame wsTestFrame
	if err := json.Unmarshal(conn.Bytes(), &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Type != "chat.message" {
		t.Fatalf("frame type = %q", frame.Type)
	}
	msg := decodeMessagePayload(t, frame.Payload)
	if msg.Message.Text != "Привет, мир" || msg.Message.Language != "ru" || msg.Message.Sender.Subject != "user-1" {
		t.Fatalf("message = %+v", msg.Message)
	}
}

func TestWSPeerDeliverAfterClose(t *testing.T) {
	conn := &bufferConn{}
	peer := newWSPeer(conn, 0)
	peer.close()

	err := peer.Deliver(context.Background(), domain.OutboundMessage{Text: "hi"})
	if !errors.Is(err, errPeerClosed) {
		t.Fatalf("err = %v, want errPeerClosed", err)
	}
	if conn.Len() != 0 {
		t.Fatalf("wrote %d bytes after close", conn.Len())
	}
}

func TestWSPeerDeliverHonorsContext(t *testing.T) {
	peer := newWSPeer(&bufferConn{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := peer.Deliver(ctx, domain.OutboundMessage{Text: "hi"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWSPeerWriteDeadlineFailure(t *testing.T) {
	conn := &bufferConn{deadlineErr: errors.New("closed")}
	peer := newWSPeer(conn, 0)

	if err := peer.Deliver(context.Background(), domain.OutboundMessage{Text: "hi"}); err == nil {
		t.Fatal("expected deadline error")
	}
}

func TestConnectionStateTransitions(t *testing.T) {
	c := newWSConnection(Deps{})
	if c.currentState() != stateConnecting {
		t.Fatalf("initial state = %s", c.currentState())
	}
	if c.transition(stateActive) {
		t.Fatal("connecting -> active should be rejected")
	}
	for _, next := range []connState{stateAuthenticating, stateActive, stateClosing, stateClosed} {
		if !c.transition(next) {
			t.Fatalf("transition to %s rejected from %s", next, c.currentState())
		}
	}
	if c.transition(stateActive) {
		t.Fatal("closed is terminal")
	}
}

func TestConnectionAuthFailureCloses(t *testing.T) {
	c := newWSConnection(Deps{})
	c.transition(stateAuthenticating)
	if !c.transition(stateClosed) {
		t.Fatal("authenticating -> closed rejected")
	}
	if got := c.currentState().String(); got != "closed" {
		t.Fatalf("state = %q", got)
	}
}
