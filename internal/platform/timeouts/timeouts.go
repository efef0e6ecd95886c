// Package timeouts defines shared timeout constants used across the relay.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during graceful
// shutdown.
const Shutdown = 5 * time.Second

// Write bounds a single websocket frame write to a connected client.
const Write = 5 * time.Second

// AuthVerify bounds one credential verification round trip.
const AuthVerify = 5 * time.Second

// Translate bounds one call to the translation engine.
const Translate = 10 * time.Second

// CachePrune is the default interval between expired-entry sweeps.
const CachePrune = time.Minute
