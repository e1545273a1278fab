package utorrent

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshake_Online(t *testing.T) {
	m := newMockDaemon(t, nil)

	client := m.client()

	assert.True(t, client.IsOnline())
	assert.NoError(t, client.SessionErr())

	session := client.Session()
	assert.Equal(t, testToken, session.Token)
	assert.Equal(t, testGUID, session.GUID)
	assert.Equal(t, SessionOnline, session.State)
}

func TestHandshake_Rejected(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			m := newMockDaemon(t, nil)
			m.tokenStatus = status

			client := m.client()

			assert.False(t, client.IsOnline())
			assert.Equal(t, TokenUnauthorized, client.Session().Token)
			assert.Equal(t, SessionUnauthorized, client.Session().State)
			assert.ErrorIs(t, client.SessionErr(), ErrAuthFailure)
		})
	}
}

func TestHandshake_BadCredentials(t *testing.T) {
	m := newMockDaemon(t, nil)

	client := NewClient(Config{Host: m.url(), Username: testUser, Password: "wrong"})

	assert.False(t, client.IsOnline())
	assert.Equal(t, TokenUnauthorized, client.Session().Token)
}

func TestHandshake_Offline(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL + "/gui"
	server.Close()

	var client *Client
	require.NotPanics(t, func() {
		client = NewClient(Config{Host: host, Username: testUser, Password: testPass})
	})

	assert.False(t, client.IsOnline())
	assert.Equal(t, TokenOffline, client.Session().Token)
	assert.Equal(t, SessionOffline, client.Session().State)
	assert.ErrorIs(t, client.SessionErr(), ErrTransportFailure)
}

func TestHandshake_Offline_LogsOnce(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL + "/gui"
	server.Close()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	client := NewClient(Config{Host: host, Username: testUser, Password: testPass, Log: &logger})
	require.False(t, client.IsOnline())

	assert.Equal(t, 1, strings.Count(buf.String(), `"level":"error"`))
	assert.Contains(t, buf.String(), "could not reach webui")
}

func TestHandshake_MissingToken(t *testing.T) {
	m := newMockDaemon(t, nil)
	m.tokenBody = "<html><body>no token here</body></html>"

	client := m.client()

	assert.False(t, client.IsOnline())
	assert.Equal(t, TokenUnauthorized, client.Session().Token)
	assert.ErrorIs(t, client.SessionErr(), ErrTokenNotFound)
	assert.ErrorIs(t, client.SessionErr(), ErrAuthFailure)
}

func TestHandshake_MissingCookie(t *testing.T) {
	m := newMockDaemon(t, nil)
	m.guid = ""

	client := m.client()

	assert.True(t, client.IsOnline())
	assert.Empty(t, client.Session().GUID)

	_, err := client.Start("HASH")
	require.NoError(t, err)

	req, _ := m.lastRequest()
	_, err = req.Cookie("GUID")
	assert.ErrorIs(t, err, http.ErrNoCookie)
}

func TestScrapeToken(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "utorrent page", body: "<html><div id='token' style='display:none;'>abc123</div></html>", want: "abc123"},
		{name: "surrounding whitespace", body: "<div id=\"token\">\n  abc123 \n</div>", want: "abc123"},
		{name: "nested elements", body: "<html><body><p>x</p><div><span id=\"token\">tok</span></div></body></html>", want: "tok"},
		{name: "missing element", body: "<html><div id='other'>abc</div></html>", wantErr: true},
		{name: "empty element", body: "<div id='token'></div>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scrapeToken(strings.NewReader(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTokenNotFound)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "online", SessionOnline.String())
	assert.Equal(t, "unauthorized", SessionUnauthorized.String())
	assert.Equal(t, "offline", SessionOffline.String())
}
