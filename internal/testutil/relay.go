package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Relay endpoint names as they appear in the URL path.
const (
	OpRegisterVK  = "register-vk"
	OpSubmitProof = "submit-proof"
	OpJobStatus   = "job-status"
)

// Reply is one scripted relay response. Body may be a string (sent
// verbatim) or any value (JSON-encoded).
type Reply struct {
	Status int
	Body   any
}

// OK is a 200 reply with a JSON body.
func OK(body any) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}

// Unavailable is a 503 reply.
func Unavailable() Reply {
	return Reply{Status: http.StatusServiceUnavailable, Body: "Service Unavailable"}
}

// RelayCall records one request received by FakeRelay.
type RelayCall struct {
	Op     string
	Method string
	Path   string
	JobID  string
	Body   []byte
}

// Decode unmarshals the recorded request body into v.
func (c RelayCall) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(c.Body, v); err != nil {
		t.Fatalf("decode %s body: %v", c.Op, err)
	}
}

// FakeRelay is an httptest relay with scripted per-endpoint replies.
//
// Replies for an endpoint are consumed in order; the last one repeats.
// Requests carrying the wrong API key get 401, unscripted endpoints 500.
type FakeRelay struct {
	APIKey string

	srv     *httptest.Server
	mu      sync.Mutex
	replies map[string][]Reply
	calls   []RelayCall
}

// NewFakeRelay starts a fake relay that is closed with the test.
func NewFakeRelay(t *testing.T, apiKey string) *FakeRelay {
	t.Helper()
	f := &FakeRelay{
		APIKey:  apiKey,
		replies: map[string][]Reply{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the relay base URL.
func (f *FakeRelay) URL() string {
	return f.srv.URL
}

// Script appends replies for op.
func (f *FakeRelay) Script(op string, replies ...Reply) *FakeRelay {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[op] = append(f.replies[op], replies...)
	return f
}

// Calls returns the recorded requests for op, or all requests if op is
// empty.
func (f *FakeRelay) Calls(op string) []RelayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RelayCall
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of requests received for op.
func (f *FakeRelay) Count(op string) int {
	return len(f.Calls(op))
}

func (f *FakeRelay) serve(w http.ResponseWriter, r *http.Request) {
	// /{op}/{key}[/{jobId}]
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	op, key := parts[0], parts[1]
	body, _ := io.ReadAll(r.Body)

	call := RelayCall{Op: op, Method: r.Method, Path: r.URL.Path, Body: body}
	if len(parts) > 2 {
		call.JobID = parts[2]
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	reply, ok := f.next(op)
	f.mu.Unlock()

	if key != f.APIKey {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		return
	}
	if !ok {
		http.Error(w, "unscripted endpoint "+op, http.StatusInternalServerError)
		return
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	switch b := reply.Body.(type) {
	case string:
		w.WriteHeader(status)
		_, _ = io.WriteString(w, b)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(b)
	}
}

// next pops the next reply for op. Caller holds f.mu.
func (f *FakeRelay) next(op string) (Reply, bool) {
	rs := f.replies[op]
	if len(rs) == 0 {
		return Reply{}, false
	}
	r := rs[0]
	if len(rs) > 1 {
		f.replies[op] = rs[1:]
	}
	return r, true
}
