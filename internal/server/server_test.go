package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backend-meetspot/internal/config"
	"backend-meetspot/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0"}, nil, nil, logging.Discard())
	t.Cleanup(s.Close)
	return s
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 status")
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t)
	s.Metrics.OffersTimedOut.Inc()

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "meetspot_offers_timed_out_total 1") {
		t.Fatalf("expected offer timeout counter in exposition")
	}
}

func TestOfferRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/offers/around?long=1&lat=1&radius=1", "/stream/ws"} {
		resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("test request: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}
