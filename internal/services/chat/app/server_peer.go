package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/louisbranch/babel.chat/internal/platform/timeouts"
	"github.com/louisbranch/babel.chat/internal/services/chat/domain"
)

var errPeerClosed = errors.New("peer closed")

type frameConn interface {
	io.Writer
	SetWriteDeadline(time.Time) error
}

// wsPeer serializes frame writes for one websocket connection. It is the
// registry outbox for that connection.
type wsPeer struct {
	mu           sync.Mutex
	conn         frameConn
	encoder      *json.Encoder
	writeTimeout time.Duration
	closed       atomic.Bool
}

func newWSPeer(conn frameConn, writeTimeout time.Duration) *wsPeer {
	if writeTimeout <= 0 {
		writeTimeout = timeouts.Write
	}
	return &wsPeer{conn: conn, encoder: json.NewEncoder(conn), writeTimeout: writeTimeout}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	if p.closed.Load() {
		return errPeerClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return err
	}
	return p.encoder.Encode(frame)
}

func (p *wsPeer) close() {
	p.closed.Store(true)
}

// Deliver writes msg as a chat.message frame.
func (p *wsPeer) Deliver(ctx context.Context, msg domain.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.writeFrame(wsFrame{
		Type:    "chat.message",
		Payload: mustJSON(messageEnvelope{Message: chatMessageFrom(msg)}),
	})
}

func chatMessageFrom(msg domain.OutboundMessage) chatMessage {
	return chatMessage{
		Text:           msg.Text,
		OriginalText:   msg.OriginalText,
		SourceLanguage: msg.SourceLanguage,
		Language:       msg.Language,
		Translated:     msg.Translated,
		Sender:         senderViewFrom(msg.Sender),
		SentAt:         msg.SentAt.UTC().Format(time.RFC3339Nano),
	}
}

func senderViewFrom(identity domain.Identity) senderView {
	return senderView{Subject: identity.Subject, DisplayName: identity.DisplayName}
}
