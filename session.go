package utorrent

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/autobrr/go-utorrent/errors"
)

const (
	// TokenUnauthorized is sent as the token after the daemon rejected the handshake.
	TokenUnauthorized = "-1"

	// TokenOffline is sent as the token when the daemon could not be reached.
	TokenOffline = "0"

	sessionCookieName = "GUID"
)

type SessionState int

const (
	SessionOnline SessionState = iota
	SessionUnauthorized
	SessionOffline
)

func (s SessionState) String() string {
	switch s {
	case SessionOnline:
		return "online"
	case SessionUnauthorized:
		return "unauthorized"
	case SessionOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Session is the token and GUID cookie pair obtained from token.html.
type Session struct {
	Token string
	GUID  string
	State SessionState

	// Err holds the handshake failure, nil when online
	Err error
}

func (s Session) IsOnline() bool {
	return s.State == SessionOnline && s.Token != TokenUnauthorized && s.Token != TokenOffline
}

func (s Session) cookie() *http.Cookie {
	if s.GUID == "" {
		return nil
	}

	return &http.Cookie{Name: sessionCookieName, Value: s.GUID}
}

// IsOnline reports whether the handshake produced a usable token.
func (c *Client) IsOnline() bool {
	return c.session.IsOnline()
}

// Session returns a copy of the session established at construction.
func (c *Client) Session() Session {
	return c.session
}

// SessionErr returns why the handshake failed, or nil.
func (c *Client) SessionErr() error {
	return c.session.Err
}

// handshake https://github.com/bittorrent/webui/wiki/TokenSystem
func (c *Client) handshake(ctx context.Context) Session {
	resp, err := c.getTokenPage(ctx)
	if err != nil {
		c.log.Error().Err(err).Str("host", c.cfg.Host).Msg("could not reach webui")
		return Session{
			Token: TokenOffline,
			State: SessionOffline,
			Err:   errors.Wrap(err, "token handshake"),
		}
	}

	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("host", c.cfg.Host).Msg("token handshake rejected")
		return Session{
			Token: TokenUnauthorized,
			State: SessionUnauthorized,
			Err:   errors.Wrap(ErrAuthFailure, "token handshake; status code: %d", resp.StatusCode),
		}
	}

	token, err := scrapeToken(resp.Body)
	if err != nil {
		c.log.Warn().Err(err).Str("host", c.cfg.Host).Msg("could not read token")
		return Session{
			Token: TokenUnauthorized,
			State: SessionUnauthorized,
			Err:   errors.Wrap(errors.Join(ErrAuthFailure, err), "token handshake"),
		}
	}

	var guid string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName {
			guid = cookie.Value
			break
		}
	}

	if guid == "" {
		c.log.Warn().Str("host", c.cfg.Host).Msg("token handshake returned no GUID cookie")
	}

	c.log.Debug().Str("host", c.cfg.Host).Msg("logged into client")

	return Session{
		Token: token,
		GUID:  guid,
		State: SessionOnline,
	}
}

func (c *Client) getTokenPage(ctx context.Context) (*http.Response, error) {
	reqUrl, err := c.buildTokenUrl()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}

	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	return c.do(ctx, req)
}

const tokenXPath = `//*[@id="token"]`

// scrapeToken returns the text of the first element with id "token".
func scrapeToken(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", errors.Wrap(err, "could not parse token page")
	}

	node, err := htmlquery.Query(doc, tokenXPath)
	if err != nil {
		return "", errors.Wrap(err, "could not query token page")
	}

	if node == nil {
		return "", ErrTokenNotFound
	}

	token := strings.TrimSpace(htmlquery.InnerText(node))
	if token == "" {
		return "", ErrTokenNotFound
	}

	return token, nil
}
