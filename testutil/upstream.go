package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// ScriptedUpstream is an httptest server that plays back a scripted
// sequence of status codes, then repeats the last one. It counts every
// request so tests can assert a thunk was (or was not) invoked.
type ScriptedUpstream struct {
	Server *httptest.Server

	mu     sync.Mutex
	script []int
	index  int
	hits   atomic.Int64
}

// NewScriptedUpstream starts a server answering with the given codes in
// order. An empty script answers 200.
func NewScriptedUpstream(codes ...int) *ScriptedUpstream {
	u := &ScriptedUpstream{script: codes}
	u.Server = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

func (u *ScriptedUpstream) handle(w http.ResponseWriter, _ *http.Request) {
	u.hits.Add(1)

	u.mu.Lock()
	code := http.StatusOK
	if len(u.script) > 0 {
		if u.index < len(u.script) {
			code = u.script[u.index]
			u.index++
		} else {
			code = u.script[len(u.script)-1]
		}
	}
	u.mu.Unlock()

	w.WriteHeader(code)
	_, _ = w.Write([]byte(http.StatusText(code)))
}

// URL returns the server base URL.
func (u *ScriptedUpstream) URL() string { return u.Server.URL }

// Hits returns how many requests reached the server.
func (u *ScriptedUpstream) Hits() int64 { return u.hits.Load() }

// SetScript replaces the remaining script.
func (u *ScriptedUpstream) SetScript(codes ...int) {
	u.mu.Lock()
	u.script = codes
	u.index = 0
	u.mu.Unlock()
}

// Close shuts the server down.
func (u *ScriptedUpstream) Close() { u.Server.Close() }
