package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionExpired is returned when attaching a session past its expiry.
var ErrSessionExpired = errors.New("session expired")

// Manager runs one monitor per owner key and shares it between the owner's
// sessions. Alerts go to a per-owner topic, so a second login must not
// duplicate them. A monitor stops when its last session detaches or expires.
type Manager struct {
	gw      Gateway
	alerter Alerter
	window  time.Duration
	l       *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	monitors map[string]*owned
	sessions map[string]*attachment
}

type owned struct {
	m        *Monitor
	sessions int
}

type attachment struct {
	ownerKey string
	expiry   *time.Timer
}

func NewManager(l *slog.Logger, gw Gateway, alerter Alerter, window time.Duration) *Manager {
	return &Manager{
		gw:       gw,
		alerter:  alerter,
		window:   window,
		l:        l.With(slog.String("component", "monitor-manager")),
		now:      time.Now,
		monitors: map[string]*owned{},
		sessions: map[string]*attachment{},
	}
}

// Attach binds the session to its owner's monitor, starting it if needed.
// The binding is dropped at expiresAt; a zero expiresAt never expires.
func (mg *Manager) Attach(ctx context.Context, sessionID, ownerKey, userID string, expiresAt time.Time) (*Monitor, error) {
	var ttl time.Duration

	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(mg.now())
		if ttl <= 0 {
			return nil, ErrSessionExpired
		}
	}

	if m, ok := mg.bound(sessionID, ownerKey); ok {
		return m, nil
	}

	mg.mu.Lock()
	defer mg.mu.Unlock()

	if a, ok := mg.sessions[sessionID]; ok && a.ownerKey == ownerKey {
		return mg.monitors[ownerKey].m, nil
	}

	o, ok := mg.monitors[ownerKey]
	if !ok {
		m, err := Start(ctx, mg.l, mg.gw, mg.alerter, ownerKey, userID, mg.window)
		if err != nil {
			return nil, err
		}

		o = &owned{m: m}
		mg.monitors[ownerKey] = o
	}

	a := &attachment{ownerKey: ownerKey}
	if ttl > 0 {
		a.expiry = time.AfterFunc(ttl, func() {
			mg.l.Info("Session expired, detaching", slog.String("sessionID", sessionID))
			mg.Detach(sessionID)
		})
	}

	mg.sessions[sessionID] = a
	o.sessions++

	return o.m, nil
}

// bound returns the session's monitor when it already follows ownerKey and
// detaches it from any other owner.
func (mg *Manager) bound(sessionID, ownerKey string) (*Monitor, bool) {
	mg.mu.Lock()
	a, ok := mg.sessions[sessionID]

	if ok && a.ownerKey == ownerKey {
		m := mg.monitors[ownerKey].m
		mg.mu.Unlock()

		return m, true
	}

	mg.mu.Unlock()

	if ok {
		mg.Detach(sessionID)
	}

	return nil, false
}

// Get returns the monitor the session is attached to.
func (mg *Manager) Get(sessionID string) (*Monitor, bool) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	a, ok := mg.sessions[sessionID]
	if !ok {
		return nil, false
	}

	return mg.monitors[a.ownerKey].m, true
}

// Detach unbinds the session and stops the owner's monitor once no session
// is left. Unknown sessions are ignored.
func (mg *Manager) Detach(sessionID string) {
	mg.mu.Lock()

	a, ok := mg.sessions[sessionID]
	if !ok {
		mg.mu.Unlock()
		return
	}

	delete(mg.sessions, sessionID)

	if a.expiry != nil {
		a.expiry.Stop()
	}

	var stop *Monitor

	o := mg.monitors[a.ownerKey]
	o.sessions--

	if o.sessions == 0 {
		delete(mg.monitors, a.ownerKey)
		stop = o.m
	}

	mg.mu.Unlock()

	if stop != nil {
		stop.Close()
	}
}

// Len is the number of running monitors.
func (mg *Manager) Len() int {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	return len(mg.monitors)
}

// Sessions is the number of attached sessions.
func (mg *Manager) Sessions() int {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	return len(mg.sessions)
}

// Close stops every monitor and drops every session.
func (mg *Manager) Close() {
	mg.mu.Lock()
	monitors := mg.monitors
	mg.monitors = map[string]*owned{}

	for _, a := range mg.sessions {
		if a.expiry != nil {
			a.expiry.Stop()
		}
	}

	mg.sessions = map[string]*attachment{}
	mg.mu.Unlock()

	for _, o := range monitors {
		o.m.Close()
	}
}
