package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
)

func newTestServer(addr string) *Server {
	h := NewHandler(&fakeSessions{}, &fakeResets{}, &fakeAvatars{},
		auth.NewIssuer([]byte("secret"), time.Hour, time.Hour), nil, time.Second, logging.Nop{})
	return NewServer(addr, h, logging.Nop{})
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	listen, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := newTestServer(listen.Addr().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.serve(ctx, listen)
	}()

	resp, err := http.Get("http://" + listen.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	var env struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	_ = resp.Body.Close()
	if !env.Success {
		t.Fatal("expected success envelope")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error on shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := newTestServer("127.0.0.1:99999")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
