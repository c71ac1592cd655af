// Package syno implements the session and request layer of the
// Synology Web API: a transport for form/multipart POSTs against the
// unified entry.cgi endpoint, the success/data/error envelope decoder,
// a shared session token cell, and the executor that transparently
// re-authenticates once when the server reports an expired session.
package syno

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	authAPI     = "SYNO.API.Auth"
	authVersion = 7

	defaultSessionName = "DownloadStation"
	defaultTimeout     = 30 * time.Second
)

// Config holds the connection settings and credentials. Credentials are
// kept for the lifetime of the client to support re-authentication and
// are never logged.
type Config struct {
	// URL is the base address of the NAS, e.g. "https://nas.local:5001".
	URL      string
	Username string
	Password string
	// SessionName is the Synology application session to log into.
	// Defaults to "DownloadStation".
	SessionName string
	// Timeout bounds each HTTP round trip. Defaults to 30s.
	Timeout time.Duration
}

// Client executes API calls with an implicit authenticated session.
// It is safe for concurrent use; concurrent calls that each observe an
// expired session each perform their own re-login (idempotent on the
// server side, last writer wins).
type Client struct {
	cfg       Config
	transport *transport
	session   session
	logger    zerolog.Logger
}

// New validates the configuration and creates a client. No network
// activity happens until the first call.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Username == "" {
		return nil, errors.New("username must not be empty")
	}
	if cfg.Password == "" {
		return nil, errors.New("password must not be empty")
	}
	if cfg.URL == "" {
		return nil, errors.New("base URL must not be empty")
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("base URL must start with http:// or https://, got %q", cfg.URL)
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")

	if cfg.SessionName == "" {
		cfg.SessionName = defaultSessionName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg:       cfg,
		transport: newTransport(cfg.URL, &http.Client{Timeout: cfg.Timeout}),
		logger:    logger.With().Str("component", "syno").Logger(),
	}, nil
}

type authData struct {
	SID string `json:"sid"`
}

// Login performs the authentication handshake and replaces the held
// session token. Any failure (transport, decode, or API) is surfaced as
// an *AuthError and the previously held token, if any, stays in place.
func (c *Client) Login(ctx context.Context) error {
	req := NewRequest(authAPI, authVersion, "login").
		Set("account", c.cfg.Username).
		Set("passwd", c.cfg.Password).
		Set("session", c.cfg.SessionName).
		Set("format", "sid")

	// Login never carries a _sid.
	body, err := c.transport.send(ctx, req.form(""), nil)
	if err != nil {
		return &AuthError{Err: err}
	}

	var auth authData
	if err := decodeEnvelope(body, &auth); err != nil {
		return &AuthError{Err: err}
	}
	if auth.SID == "" {
		return &AuthError{Err: errors.New("login response missing sid")}
	}

	c.session.replace(auth.SID)
	c.logger.Debug().Str("account", c.cfg.Username).Msg("session established")
	return nil
}

// Authenticated reports whether a session token is currently held. This
// is a best-effort local fact; the server remains the source of truth
// and expiry is only discovered by a failed call.
func (c *Client) Authenticated() bool {
	return c.session.active()
}

// Call executes one logical API call: attach the current session token,
// send, decode. When the server reports the session-expiry code, it
// re-authenticates exactly once and replays the call with the fresh
// token; a second expiry, and every other failure, surfaces as-is.
// Transport and decode failures are never retried.
func (c *Client) Call(ctx context.Context, req *Request, out any) error {
	if !c.session.active() {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}

	retried := false
	for {
		body, err := c.transport.send(ctx, req.form(c.session.token()), req.upload)
		if err != nil {
			return err
		}

		err = decodeEnvelope(body, out)
		if err == nil {
			return nil
		}
		if !IsSessionExpired(err) || retried {
			return err
		}

		// One re-login, then one replay. If the re-login itself fails
		// the caller sees that auth failure, not the stale expiry code.
		retried = true
		c.logger.Debug().
			Str("api", req.API).
			Str("method", req.Method).
			Msg("session expired, re-authenticating")
		if err := c.Login(ctx); err != nil {
			return err
		}
	}
}
