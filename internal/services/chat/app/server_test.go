package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/babel.chat/internal/platform/grpc"
	"github.com/louisbranch/babel.chat/internal/services/chat/authn"
	"github.com/louisbranch/babel.chat/internal/services/chat/translator"
	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func testConfig() Config {
	return Config{
		HTTPAddr: "127.0.0.1:0",
		Auth:     authn.Config{Kind: authn.KindJWT, JWTSecret: "test-secret"},
		Engine:   translator.EngineConfig{Kind: translator.EngineStub},
	}
}

func TestNewServerRequiresHTTPAddr(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Fatal("expected error for empty HTTP address")
	}
}

func TestNewServerRejectsMissingAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = authn.Config{}
	if _, err := NewServer(cfg); err == nil {
		t.Fatal("expected error for missing auth verifier")
	}
}

func TestNewServerRejectsUnknownEngine(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Kind = "babelfish"
	if _, err := NewServer(cfg); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestRunWrapsInitErrors(t *testing.T) {
	err := Run(context.Background(), Config{})
	if err == nil || !strings.Contains(err.Error(), "init chat server") {
		t.Fatalf("err = %v, want init chat server error", err)
	}
}

func TestListenAndServeNilServer(t *testing.T) {
	var s *Server
	if err := s.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected error for nil server")
	}
}

func TestNewHandlerUpEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/up", nil)

	NewHandler(Deps{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if strings.TrimSpace(rr.Body.String()) != "OK" {
		t.Fatalf("body = %q, want OK", rr.Body.String())
	}
}

func TestNewHandlerWSEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ws", nil)

	NewHandler(Deps{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
	if rr.Header().Get("Allow") != http.MethodGet {
		t.Fatalf("Allow = %q, want GET", rr.Header().Get("Allow"))
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := NewServer(testConfig())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer server.Close()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe(ctx)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop on cancel")
	}
}

func TestListenAndServeReportsHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.HealthAddr = "127.0.0.1:0"
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer server.Close()
	if server.HealthAddr() == "" {
		t.Fatal("expected bound health address")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe(ctx)
	}()

	conn, err := gogrpc.NewClient(server.HealthAddr(), platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		t.Fatalf("dial health: %v", err)
	}
	defer conn.Close()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	if err := platformgrpc.WaitForHealth(waitCtx, conn, healthServiceName, nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	status, err := platformgrpc.CheckHealth(waitCtx, conn, healthServiceName)
	if err != nil {
		t.Fatalf("check health: %v", err)
	}
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status = %s, want SERVING", status)
	}

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop on cancel")
	}
}

func TestListenAndServeRejectsBusyAddress(t *testing.T) {
	busy := httptest.NewServer(http.NotFoundHandler())
	defer busy.Close()

	cfg := testConfig()
	cfg.HTTPAddr = strings.TrimPrefix(busy.URL, "http://")
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected listen error on busy address")
	}
}
