package monitor

import (
	"testing"

	"redalert/backend/internal/notify"
)

func device(allowed, arrived, fire bool) *DeviceSnapshot {
	return &DeviceSnapshot{
		Latitude:  NumberOf(14.2),
		Longitude: NumberOf(120.9),
		Allowed:   allowed,
		Arrived:   arrived,
		Fire:      fire,
	}
}

func alerts(effects []Effect) []string {
	var out []string

	for _, e := range effects {
		if a, ok := e.(Alert); ok {
			out = append(out, a.Body)
		}
	}

	return out
}

func TestReduceDeviceUpdated(t *testing.T) {
	t.Parallel()

	s, effects := Reduce(NewState("u1"), DeviceUpdated{Device: device(true, false, false)})

	if !s.GatheringData || s.PinColor != PinRed || s.Generation != 1 {
		t.Errorf("state = %+v", s)
	}
	if len(effects) != 1 || effects[0] != (RestartFreshness{Generation: 1}) {
		t.Errorf("effects = %#v", effects)
	}
	if s.Region == nil || *s.Region != (Region{Latitude: 14.2, Longitude: 120.9, LatitudeDelta: 0.1, LongitudeDelta: 0.1}) {
		t.Errorf("Region = %+v", s.Region)
	}
	if v := s.View(); !v.MarkerVisible {
		t.Error("marker should be visible while not arrived")
	}
}

func TestReduceFreshnessGenerations(t *testing.T) {
	t.Parallel()

	s, _ := Reduce(NewState("u1"), DeviceUpdated{Device: device(true, false, false)})
	s, _ = Reduce(s, DeviceUpdated{Device: device(true, false, false)})

	stale, _ := Reduce(s, FreshnessExpired{Generation: 1})
	if !stale.GatheringData || stale.PinColor != PinRed {
		t.Errorf("stale timer took effect: %+v", stale)
	}

	current, _ := Reduce(s, FreshnessExpired{Generation: 2})
	if current.GatheringData || current.PinColor != PinYellow {
		t.Errorf("current timer ignored: %+v", current)
	}
}

func TestReduceMissingCoordinatesKeepsDerivedFields(t *testing.T) {
	t.Parallel()

	s, _ := Reduce(NewState("u1"), DeviceUpdated{Device: device(true, false, false)})

	noCoords := &DeviceSnapshot{Allowed: false, Arrived: true, Fire: true}
	next, effects := Reduce(s, DeviceUpdated{Device: noCoords})

	if !next.Allowed || next.Arrived || next.HouseOnFire {
		t.Errorf("derived fields changed without coordinates: %+v", next)
	}
	if next.Region == nil || next.Region.Latitude != 14.2 {
		t.Errorf("Region = %+v", next.Region)
	}
	if got := alerts(effects); len(got) != 0 {
		t.Errorf("alerts = %v", got)
	}
	if next.View().MarkerVisible {
		t.Error("marker should be hidden without coordinates")
	}
}

func TestReduceMissingDevice(t *testing.T) {
	t.Parallel()

	s, effects := Reduce(NewState("u1"), DeviceUpdated{})

	if s.Device != nil || !s.GatheringData || len(effects) != 1 {
		t.Errorf("state = %+v, effects = %#v", s, effects)
	}
	if s.View().Readout.Smoke != notDetected {
		t.Errorf("readout = %+v", s.View().Readout)
	}
}

func TestReduceAlertTriggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		device *DeviceSnapshot
		want   []string
	}{
		{name: "quiet", device: device(true, false, false)},
		{name: "fire", device: device(true, false, true), want: []string{notify.BodyHouseOnFire}},
		{name: "responding", device: device(false, false, false), want: []string{notify.BodyResponding}},
		{
			name:   "all in order",
			device: device(false, true, true),
			want:   []string{notify.BodyArrived, notify.BodyHouseOnFire, notify.BodyResponding},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, effects := Reduce(NewState("u1"), DeviceUpdated{Device: tt.device})
			got := alerts(effects)

			if len(got) != len(tt.want) {
				t.Fatalf("alerts = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("alert[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReduceArrivedAlertOncePerSession(t *testing.T) {
	t.Parallel()

	s := NewState("u1")

	var arrivedAlerts int

	for _, arrived := range []bool{false, true, true, false, true} {
		var effects []Effect
		s, effects = Reduce(s, DeviceUpdated{Device: device(true, arrived, false)})

		for _, body := range alerts(effects) {
			if body == notify.BodyArrived {
				arrivedAlerts++
			}
		}
	}

	if arrivedAlerts != 1 {
		t.Errorf("arrived alert fired %d times, want 1", arrivedAlerts)
	}
	if !s.NotificationSent {
		t.Error("NotificationSent should stay set")
	}
	if s.View().MarkerVisible {
		t.Error("marker should be hidden after arrival")
	}
}

func TestReduceFireIsLevelTriggered(t *testing.T) {
	t.Parallel()

	s := NewState("u1")

	var fires int

	for range 3 {
		var effects []Effect
		s, effects = Reduce(s, DeviceUpdated{Device: device(true, false, true)})

		for _, body := range alerts(effects) {
			if body == notify.BodyHouseOnFire {
				fires++
			}
		}
	}

	if fires != 3 {
		t.Errorf("fire alert fired %d times, want 3", fires)
	}
}

func TestReducePinColorIgnoresArrived(t *testing.T) {
	t.Parallel()

	a, _ := Reduce(NewState("u1"), DeviceUpdated{Device: device(true, true, false)})
	b, _ := Reduce(NewState("u1"), DeviceUpdated{Device: device(true, false, false)})

	if a.PinColor != b.PinColor {
		t.Errorf("pinColor depends on arrived: %s vs %s", a.PinColor, b.PinColor)
	}
}

func TestReduceLogs(t *testing.T) {
	t.Parallel()

	s, _ := Reduce(NewState("u1"), LogsUpdated{Exists: true, Logs: []LogEntry{{UserID: "u1", Temperature: NumberOf(30)}}})
	if s.Series.Len() != 1 {
		t.Fatalf("Series = %+v", s.Series)
	}

	s, _ = Reduce(s, LogsUpdated{})
	if s.Series.Len() != 0 {
		t.Errorf("missing logs should reset series, got %+v", s.Series)
	}

	s, _ = Reduce(s, SummaryUpdated{Exists: true, Entries: []LogSummaryEntry{{UserID: "u2", CombinedValue: NumberOf(1)}}})
	if len(s.Bars.Labels) != 0 {
		t.Errorf("Bars = %+v", s.Bars)
	}

	s, _ = Reduce(s, SummaryUpdated{})
	if len(s.Bars.Labels) != 5 || len(s.Bars.Data) != 0 {
		t.Errorf("missing summary should reset to default bars, got %+v", s.Bars)
	}
}
