// Package session owns the mutable identity state shared by the HTTP facade
// and the guide refresher: coordinates, market scope, credentials, and the
// auth token. All reads-then-writes go through a single mutex held only for
// state access, never across an outbound network call.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jmylchreest/locastarr/internal/config"
	"github.com/jmylchreest/locastarr/internal/locast"
	"github.com/jmylchreest/locastarr/internal/observability"
)

// ErrMissingCredentials indicates no user email was configured. Credentials
// are mandatory at startup; a pre-existing token alone cannot bootstrap
// location state.
var ErrMissingCredentials = errors.New("session: user email is required")

// browserUserAgent is sent on every outbound call; the source endpoint
// expects a browser client.
const browserUserAgent = "Mozilla/5.0 (Windows NT 6.2; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/32.0.1667.0 Safari/537.36"

// Manager owns the Session and produces authenticated request context for
// every outbound call.
type Manager struct {
	client *locast.Client
	store  Store
	logger *slog.Logger

	origin string // Origin/Referer header value

	mu           sync.Mutex
	lat, lon     float64
	dma          string
	locationName string
	email        string
	password     string
	token        string
}

// NewManager creates a Manager with the given coordinates and credentials.
// Call Initialize before use.
func NewManager(cfg config.SessionConfig, origin string, lat, lon float64, client *locast.Client, store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:   client,
		store:    store,
		logger:   observability.WithComponent(logger, "session"),
		origin:   origin,
		lat:      lat,
		lon:      lon,
		email:    cfg.Email,
		password: cfg.Password,
		token:    cfg.Token,
	}
}

// Initialize loads credentials, falling back to the durable store for a
// previously persisted token when none was configured. It fails when no
// email is present; the caller must treat that as fatal.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" && m.store != nil {
		state, err := m.store.Load()
		if err != nil {
			m.logger.Warn("could not read session store", slog.String("error", err.Error()))
		} else if state.Token != "" {
			m.token = state.Token
			m.logger.Info("loaded persisted session token")
		}
	}

	if m.email == "" {
		return ErrMissingCredentials
	}
	return nil
}

// ResolveMarket looks up the market for the session coordinates and commits
// the result. On failure nothing is mutated and the market stays
// unresolved; the caller decides whether that is fatal.
func (m *Manager) ResolveMarket(ctx context.Context) error {
	rc, lat, lon := m.snapshotForCall()

	market, err := m.client.LookupMarket(ctx, rc, lat, lon)
	if err != nil {
		return fmt.Errorf("resolving market: %w", err)
	}

	m.mu.Lock()
	m.dma = market.DMA
	m.locationName = market.Name
	m.mu.Unlock()

	m.logger.Info("market resolved",
		slog.String("dma", market.DMA),
		slog.String("location", market.Name),
	)
	return nil
}

// EnsureAuthenticated is a no-op when a token is already held. Otherwise it
// logs in with the stored credentials, commits the returned token, and
// persists the session state. The lock is released for the duration of the
// network call.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	m.mu.Lock()
	if m.token != "" {
		m.mu.Unlock()
		return nil
	}
	email, password := m.email, m.password
	m.mu.Unlock()

	rc, _, _ := m.snapshotForCall()
	token, err := m.client.Login(ctx, rc, email, password)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	m.mu.Lock()
	m.token = token
	state := State{UserEmail: m.email, Password: m.password, Token: m.token}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(state); err != nil {
			// The in-memory session is valid either way.
			m.logger.Warn("could not persist session state", slog.String("error", err.Error()))
		}
	}

	m.logger.Info("login successful", slog.String("user", email))
	return nil
}

// RequestContext produces the header and cookie set for one outbound call,
// derived from current session fields. It is recomputed per call and never
// cached.
func (m *Manager) RequestContext() locast.RequestContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildRequestContextLocked()
}

// buildRequestContextLocked assembles the context. Callers hold m.mu.
func (m *Manager) buildRequestContextLocked() locast.RequestContext {
	headers := http.Header{}
	headers.Set("Accept", "application/json, application/x-www-form-urlencoded, text/javascript, */*; q=0.01")
	headers.Set("Connection", "keep-alive")
	headers.Set("Origin", m.origin)
	headers.Set("Referer", m.origin)
	headers.Set("User-Agent", browserUserAgent)

	cookies := []*http.Cookie{
		{Name: "_member_location", Value: locast.FormatCoord(m.lat) + "%2C" + locast.FormatCoord(m.lon)},
	}
	if m.dma != "" {
		cookies = append(cookies,
			&http.Cookie{Name: "_user_dma", Value: m.dma},
			&http.Cookie{Name: "_user_location_name", Value: m.locationName},
		)
	}
	if m.token != "" {
		cookies = append(cookies,
			&http.Cookie{Name: "_member_token", Value: m.token},
			&http.Cookie{Name: "_member_username", Value: m.email},
			&http.Cookie{Name: "_member_role", Value: "1"},
		)
	}

	return locast.RequestContext{Headers: headers, Cookies: cookies}
}

// snapshotForCall returns a fresh request context and the coordinates under
// a single lock acquisition, for use around an outbound call.
func (m *Manager) snapshotForCall() (locast.RequestContext, float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildRequestContextLocked(), m.lat, m.lon
}

// Coordinates returns the session coordinates.
func (m *Manager) Coordinates() (lat, lon float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lat, m.lon
}

// DMA returns the resolved market code, empty until resolved.
func (m *Manager) DMA() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dma
}

// LocationName returns the resolved market name.
func (m *Manager) LocationName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locationName
}

// Email returns the configured user email.
func (m *Manager) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

// Authenticated reports whether a token is currently held.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}
