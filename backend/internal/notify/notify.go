// Package notify schedules owner alerts on a notification channel.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"redalert/backend/pkg/utils"
)

// ErrClosed is returned when scheduling on a closed notifier.
var ErrClosed = errors.New("notifier closed")

// Alert titles and bodies.
const (
	TitleRedAlert   = "Red Alert"
	BodyArrived     = "BFP has arrived!"
	BodyHouseOnFire = "Your House is Currently on Fire!"
	BodyResponding  = "BFP is Now responding!"
)

// DefaultLead is how far in the future alerts are scheduled.
const DefaultLead = time.Second

// ChannelConfig is a notification channel as the owner's device renders it.
type ChannelConfig struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Vibration        bool   `json:"vibration"`
	VibrationPattern []int  `json:"vibrationPattern"`
	Sound            string `json:"sound"`
}

// AlarmChannel is the channel every alert is delivered on.
var AlarmChannel = ChannelConfig{
	ID:               "Background Notification",
	Name:             "Alarm Channel",
	Vibration:        true,
	VibrationPattern: []int{300, 500},
	Sound:            "alarm",
}

// Notifier is the platform notification service.
type Notifier interface {
	// CreateChannel creates or reuses cfg for ownerKey and returns its id.
	CreateChannel(ctx context.Context, ownerKey string, cfg ChannelConfig) (string, error)
	// ScheduleAlert delivers a one-shot alert at fireAt.
	ScheduleAlert(ctx context.Context, ownerKey, channelID string, fireAt time.Time, title, body string) error
}

// Dispatcher schedules alerts on AlarmChannel. Notifier failures are logged
// and never returned.
type Dispatcher struct {
	n    Notifier
	lead time.Duration
	now  func() time.Time
	l    *slog.Logger
}

func NewDispatcher(l *slog.Logger, n Notifier, lead time.Duration) *Dispatcher {
	if lead <= 0 {
		lead = DefaultLead
	}

	return &Dispatcher{
		n:    n,
		lead: lead,
		now:  time.Now,
		l:    l.With(slog.String("component", "alert-dispatcher")),
	}
}

// Alert schedules title/body for ownerKey one lead from now.
func (d *Dispatcher) Alert(ctx context.Context, ownerKey, title, body string) {
	l := d.l.With(slog.String("ownerKey", ownerKey), slog.String("body", body))

	channelID, err := d.n.CreateChannel(ctx, ownerKey, AlarmChannel)
	if err != nil {
		l.Warn("Failed to create notification channel", utils.ErrAttr(err))
		return
	}

	fireAt := d.now().Add(d.lead)
	if err := d.n.ScheduleAlert(ctx, ownerKey, channelID, fireAt, title, body); err != nil {
		l.Warn("Failed to schedule alert", utils.ErrAttr(err))
		return
	}

	l.Info("Alert scheduled", slog.Time("fireAt", fireAt))
}
