package utorrent

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const (
	testUser  = "admin"
	testPass  = "secret"
	testToken = "g6ROCLUpLr7N9pwYQe4LjlwvSaO2sfWr5zTOVh3kLmZIuhK8vf8D95xzEZkAAAAA"
	testGUID  = "EnrdhTK2wDChtPUrsaTN"
)

// mockDaemon serves token.html and records every request made to the action root.
type mockDaemon struct {
	t      *testing.T
	server *httptest.Server

	tokenStatus int
	tokenBody   string
	guid        string

	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte

	handler http.HandlerFunc
}

func newMockDaemon(t *testing.T, handler http.HandlerFunc) *mockDaemon {
	t.Helper()

	m := &mockDaemon{
		t:           t,
		tokenStatus: http.StatusOK,
		tokenBody:   "<html><div id='token' style='display:none;'>" + testToken + "</div></html>",
		guid:        testGUID,
		handler:     handler,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/gui/token.html", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testUser || pass != testPass {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if m.guid != "" {
			http.SetCookie(w, &http.Cookie{Name: "GUID", Value: m.guid, Path: "/"})
		}

		w.WriteHeader(m.tokenStatus)
		_, _ = w.Write([]byte(m.tokenBody))
	})
	mux.HandleFunc("/gui/", func(w http.ResponseWriter, r *http.Request) {
		body := readAll(r)

		m.mu.Lock()
		m.requests = append(m.requests, r)
		m.bodies = append(m.bodies, body)
		m.mu.Unlock()

		if m.handler == nil {
			_, _ = w.Write([]byte(`{"build":30470}`))
			return
		}

		m.handler(w, r)
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)

	return m
}

func (m *mockDaemon) url() string {
	return m.server.URL + "/gui"
}

func (m *mockDaemon) client() *Client {
	return NewClient(Config{Host: m.url(), Username: testUser, Password: testPass})
}

func (m *mockDaemon) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

func (m *mockDaemon) lastRequest() (*http.Request, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.requests) == 0 {
		m.t.Fatal("no request recorded")
	}

	return m.requests[len(m.requests)-1], m.bodies[len(m.bodies)-1]
}

func readAll(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}

	b, _ := io.ReadAll(r.Body)
	return b
}
