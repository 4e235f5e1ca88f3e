package objects

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/h5works/restfs/pkg/config"
)

// fakeServer is an in-test stand-in for the remote object store. Tests
// register handlers for exactly the routes they expect to be hit;
// anything else 404s, which typed assertions catch.
type fakeServer struct {
	t        *testing.T
	mux      *http.ServeMux
	srv      *httptest.Server
	requests atomic.Int32
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{t: t, mux: http.NewServeMux()}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakeServer) requestCount() int {
	return int(f.requests.Load())
}

// serveDomain registers the domain endpoint answering with the given
// root for the given domain path.
func (f *fakeServer) serveDomain(domainPath, rootURI string) {
	f.handle("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("domain"); got != domainPath {
			writeJSONStatus(w, http.StatusNotFound, map[string]string{"error": "no such domain: " + got})
			return
		}
		writeJSON(w, map[string]any{"root": rootURI, "created": 1.0})
	})
}

// serveLink registers a single-link GET for name under the group.
func (f *fakeServer) serveLink(groupURI, name string, link map[string]any) {
	f.handle("GET /groups/"+groupURI+"/links/"+name, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"link": link})
	})
}

func hardLink(name, targetURI, collection string) map[string]any {
	return map[string]any{"class": "H5L_TYPE_HARD", "title": name, "id": targetURI, "collection": collection}
}

func softLink(name, targetPath string) map[string]any {
	return map[string]any{"class": "H5L_TYPE_SOFT", "title": name, "h5path": targetPath}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeRequest unmarshals a request body for assertions.
func decodeRequest(t *testing.T, r *http.Request, v any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode request body: %v", err)
	}
}

// initEngine brackets a test in the engine lifecycle.
func initEngine(t *testing.T) {
	t.Helper()
	Init(config.DiagnosticsConfig{})
	t.Cleanup(Term)
}

// newTestClient builds a client with a memory registry against the
// fake server.
func newTestClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Endpoint:       f.srv.URL,
			RequestTimeout: 5 * time.Second,
		},
		Registry: config.RegistryConfig{Type: "memory", Memory: map[string]any{}},
	}
	config.ApplyDefaults(cfg)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// testDomainPath is the domain used by most scenario tests.
const testDomainPath = "/home/test/data.h5"

// openTestDomain opens testDomainPath with root g-0001 against a
// fresh client.
func openTestDomain(t *testing.T, f *fakeServer) (*Client, *Domain) {
	t.Helper()
	f.serveDomain(testDomainPath, "g-0001")
	client := newTestClient(t, f)
	dom, err := client.OpenDomain(context.Background(), testDomainPath)
	if err != nil {
		t.Fatalf("failed to open domain: %v", err)
	}
	t.Cleanup(func() {
		if !dom.closed {
			_ = dom.Close()
		}
	})
	return client, dom
}
