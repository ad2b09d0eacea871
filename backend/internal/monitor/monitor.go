// Package monitor follows one owner's device, logs and summaries and keeps
// the derived status the owner sees.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"redalert/backend/internal/realtime"
	"redalert/backend/pkg/utils"
)

// DefaultFreshnessWindow is the quiet period after which a device counts as idle.
const DefaultFreshnessWindow = 10 * time.Second

// alertBacklog bounds the alerts waiting for a slow notifier.
const alertBacklog = 8

// Gateway is the part of the realtime database a monitor reads.
type Gateway interface {
	Subscribe(path string, fn func(realtime.Snapshot)) (*realtime.Subscription, error)
	ReadOnce(ctx context.Context, path string) (realtime.Snapshot, error)
}

// Alerter delivers alert effects.
type Alerter interface {
	Alert(ctx context.Context, ownerKey, title, body string)
}

// Monitor runs a single event loop per owner. Subscription callbacks and the
// freshness timer only post actions; the loop owns the state.
type Monitor struct {
	ownerKey string
	gw       Gateway
	alerter  Alerter
	window   time.Duration
	l        *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	actions chan Action
	alerts  chan Alert
	done    chan struct{}
	stopped chan struct{}
	sent    chan struct{}

	mu    sync.RWMutex
	state State

	subs      []*realtime.Subscription
	closeOnce sync.Once
}

// Start reads the logs once, subscribes the three paths and starts the loop.
// The caller must Close the monitor.
func Start(ctx context.Context, l *slog.Logger, gw Gateway, alerter Alerter, ownerKey, userID string, window time.Duration) (*Monitor, error) {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m := &Monitor{
		ownerKey: ownerKey,
		gw:       gw,
		alerter:  alerter,
		window:   window,
		l:        l.With(slog.String("component", "monitor"), slog.String("ownerKey", ownerKey)),
		ctx:      loopCtx,
		cancel:   cancel,
		actions:  make(chan Action, 16),
		alerts:   make(chan Alert, alertBacklog),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		sent:     make(chan struct{}),
		state:    NewState(userID),
	}

	go m.loop()
	go m.deliver()

	m.readOnce(ctx, realtime.CollectionLogs, m.logsAction)
	m.readOnce(ctx, realtime.CollectionLogsCV, m.summaryAction)

	paths := []struct {
		path   string
		action func(realtime.Snapshot) (Action, bool)
	}{
		{realtime.Child(realtime.CollectionOwner, ownerKey), m.deviceAction},
		{realtime.CollectionLogs, m.logsAction},
		{realtime.CollectionLogsCV, m.summaryAction},
	}

	for _, p := range paths {
		sub, err := gw.Subscribe(p.path, func(snap realtime.Snapshot) {
			if a, ok := p.action(snap); ok {
				m.post(a)
			}
		})
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("monitor %s: %w", ownerKey, err)
		}

		m.subs = append(m.subs, sub)
	}

	m.l.Info("Monitor started")

	return m, nil
}

// readOnce applies a one-shot read when the collection exists. Failures are
// logged; the subscription delivers the value anyway.
func (m *Monitor) readOnce(ctx context.Context, path string, action func(realtime.Snapshot) (Action, bool)) {
	snap, err := m.gw.ReadOnce(ctx, path)
	if err != nil {
		m.l.Warn("Initial read failed", slog.String("path", path), utils.ErrAttr(err))
		return
	}

	if !snap.Exists() {
		return
	}

	if a, ok := action(snap); ok {
		m.post(a)
	}
}

func (m *Monitor) deviceAction(snap realtime.Snapshot) (Action, bool) {
	if !snap.Exists() {
		return DeviceUpdated{}, true
	}

	var d DeviceSnapshot
	if err := snap.Decode(&d); err != nil {
		m.l.Warn("Dropping undecodable device record", utils.ErrAttr(err))
		return nil, false
	}

	return DeviceUpdated{Device: &d}, true
}

func (m *Monitor) logsAction(snap realtime.Snapshot) (Action, bool) {
	if !snap.Exists() {
		return LogsUpdated{}, true
	}

	children := snap.Children()
	logs := make([]LogEntry, 0, len(children))

	for _, c := range children {
		var e LogEntry
		if err := c.Decode(&e); err != nil {
			m.l.Debug("Skipping log entry", slog.String("key", c.Key()), utils.ErrAttr(err))
			continue
		}

		logs = append(logs, e)
	}

	return LogsUpdated{Logs: logs, Exists: true}, true
}

func (m *Monitor) summaryAction(snap realtime.Snapshot) (Action, bool) {
	if !snap.Exists() {
		return SummaryUpdated{}, true
	}

	children := snap.Children()
	entries := make([]LogSummaryEntry, 0, len(children))

	for _, c := range children {
		var e LogSummaryEntry
		if err := c.Decode(&e); err != nil {
			m.l.Debug("Skipping summary entry", slog.String("key", c.Key()), utils.ErrAttr(err))
			continue
		}

		entries = append(entries, e)
	}

	return SummaryUpdated{Entries: entries, Exists: true}, true
}

// post hands a to the loop unless the monitor is closing.
func (m *Monitor) post(a Action) {
	select {
	case m.actions <- a:
	case <-m.done:
	}
}

func (m *Monitor) loop() {
	defer close(m.stopped)

	var timer *time.Timer

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-m.done:
			return
		case a := <-m.actions:
			m.mu.Lock()
			next, effects := Reduce(m.state, a)
			m.state = next
			m.mu.Unlock()

			for _, e := range effects {
				switch e := e.(type) {
				case RestartFreshness:
					if timer != nil {
						timer.Stop()
					}

					gen := e.Generation
					timer = time.AfterFunc(m.window, func() {
						m.post(FreshnessExpired{Generation: gen})
					})
				case Alert:
					m.queueAlert(e)
				}
			}
		}
	}
}

// queueAlert hands e to deliver; the loop never waits on the notifier.
func (m *Monitor) queueAlert(e Alert) {
	select {
	case m.alerts <- e:
	default:
		m.l.Warn("Dropping alert, delivery backlog full", slog.String("body", e.Body))
	}
}

// deliver sends queued alerts in order until the monitor closes.
func (m *Monitor) deliver() {
	defer close(m.sent)

	for {
		select {
		case <-m.done:
			return
		case e := <-m.alerts:
			m.alerter.Alert(m.ctx, m.ownerKey, e.Title, e.Body)
		}
	}
}

// OwnerKey is the monitored device key.
func (m *Monitor) OwnerKey() string {
	return m.ownerKey
}

// State returns a copy of the current state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// View renders the current state.
func (m *Monitor) View() View {
	return m.State().View()
}

// Done is closed once the loop has exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.stopped
}

// Close releases the subscriptions and the pending timer together.
// Safe to call more than once.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		close(m.done)

		for _, sub := range m.subs {
			sub.Unsubscribe()
		}

		m.cancel()
		<-m.stopped
		<-m.sent

		m.l.Info("Monitor stopped")
	})
}
