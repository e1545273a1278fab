package utorrent

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	DefaultTimeout = 60 * time.Second
)

// Client talks to the uTorrent WebUI. The session is established once in
// NewClient and never mutated afterwards, so a Client may be shared between
// goroutines. A client whose handshake failed stays offline; build a new one to
// obtain a fresh token.
type Client struct {
	cfg Config

	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter

	session Session

	log zerolog.Logger
}

type Config struct {
	// Host is the WebUI root, e.g. http://127.0.0.1:8080/gui
	Host string

	// HTTP Basic auth credentials, sent on every request
	Username string
	Password string

	// TLS skip cert validation
	TLSSkipVerify bool

	// Timeout in seconds
	Timeout int
	Log     *zerolog.Logger

	// RateLimiter paces outgoing requests when set
	RateLimiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	return NewClientCtx(context.Background(), cfg)
}

// NewClientCtx builds a client and performs the token handshake before returning.
// Check IsOnline before issuing operations.
func NewClientCtx(ctx context.Context, cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		log:     zerolog.Nop(),
		timeout: DefaultTimeout,
		limiter: cfg.RateLimiter,
	}

	// override logger if we pass one
	if cfg.Log != nil {
		c.log = *cfg.Log
	}

	if cfg.Timeout > 0 {
		c.timeout = time.Duration(cfg.Timeout) * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	// no cookie jar: the GUID cookie from the handshake is attached explicitly so
	// later Set-Cookie headers cannot replace it
	c.http = &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
	}

	c.session = c.handshake(ctx)

	return c
}
