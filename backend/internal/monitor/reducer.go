package monitor

import "redalert/backend/internal/notify"

// Action is an event fed to Reduce.
type Action interface {
	isAction()
}

// DeviceUpdated carries a new Owner/{ownerKey} value. Device is nil when the
// record is missing.
type DeviceUpdated struct {
	Device *DeviceSnapshot
}

// LogsUpdated carries every Logs entry in ascending key order. Exists is
// false when the collection is missing.
type LogsUpdated struct {
	Logs   []LogEntry
	Exists bool
}

// SummaryUpdated carries every LogsCV entry in ascending key order.
type SummaryUpdated struct {
	Entries []LogSummaryEntry
	Exists  bool
}

// FreshnessExpired is posted when the timer of Generation runs out.
type FreshnessExpired struct {
	Generation uint64
}

func (DeviceUpdated) isAction()    {}
func (LogsUpdated) isAction()      {}
func (SummaryUpdated) isAction()   {}
func (FreshnessExpired) isAction() {}

// Effect is work the caller performs after a transition.
type Effect interface {
	isEffect()
}

// RestartFreshness cancels any pending freshness timer and starts a new one
// for Generation.
type RestartFreshness struct {
	Generation uint64
}

// Alert asks for a notification.
type Alert struct {
	Title string
	Body  string
}

func (RestartFreshness) isEffect() {}
func (Alert) isEffect()            {}

// Reduce applies a to s. It never mutates s.
func Reduce(s State, a Action) (State, []Effect) {
	switch a := a.(type) {
	case DeviceUpdated:
		return deviceUpdated(s, a)
	case LogsUpdated:
		if !a.Exists {
			s.Series = emptySeries()
		} else {
			s.Series = buildSeries(s.UserID, a.Logs)
		}

		return s, nil
	case SummaryUpdated:
		if !a.Exists {
			s.Bars = defaultBars()
		} else {
			s.Bars = buildBars(s.UserID, a.Entries)
		}

		return s, nil
	case FreshnessExpired:
		if a.Generation != s.Generation {
			return s, nil
		}

		s.GatheringData = false
		s.PinColor = pinColor(s.Allowed, s.GatheringData)

		return s, nil
	}

	return s, nil
}

func deviceUpdated(s State, a DeviceUpdated) (State, []Effect) {
	if a.Device != nil {
		d := *a.Device
		s.Device = &d
	} else {
		s.Device = nil
	}

	s.Generation++
	s.GatheringData = true
	effects := []Effect{RestartFreshness{Generation: s.Generation}}

	if s.Device != nil && s.Device.HasCoordinates() {
		s.Allowed = s.Device.Allowed
		s.Arrived = s.Device.Arrived
		s.HouseOnFire = s.Device.Fire
		s.Region = regionAround(*s.Device)
	}

	s.PinColor = pinColor(s.Allowed, s.GatheringData)

	if s.Arrived && !s.NotificationSent {
		effects = append(effects, Alert{Title: notify.TitleRedAlert, Body: notify.BodyArrived})
		s.NotificationSent = true
	}

	if s.HouseOnFire {
		effects = append(effects, Alert{Title: notify.TitleRedAlert, Body: notify.BodyHouseOnFire})
	}

	if !s.Allowed {
		effects = append(effects, Alert{Title: notify.TitleRedAlert, Body: notify.BodyResponding})
	}

	return s, effects
}
