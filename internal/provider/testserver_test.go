package provider

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

const (
	openAIChatRoute = "/chat/completions"
	ollamaChatRoute = "/api/chat"
)

// newBackendServer fakes a backend that only answers route. It listens on
// IPv4 loopback because some sandboxes refuse IPv6 listeners, and any
// request to another path fails the test.
func newBackendServer(t *testing.T, route string, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback listener unavailable: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("POST "+route, handler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend request %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: mux},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
