// Package chat implements a real-time chat relay that renders every message in
// each recipient's own language.
//
// Transport, session bookkeeping, translation, and fan-out live in separate
// subpackages so the dispatcher can be exercised without a network: app owns
// WebSocket lifecycle, registry owns live sessions, translator and cache own
// language rendering, and dispatch ties them together per message.
package chat
