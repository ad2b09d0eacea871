package services

import (
	"log/slog"

	"redalert/backend/internal/account"
	"redalert/backend/internal/contacts"
	"redalert/backend/internal/monitor"
)

// Services holds every service the HTTP layer calls into.
type Services struct {
	l          *slog.Logger
	Core       *CoreService
	Account    *account.Service
	Monitors   *monitor.Manager
	Contacts   *contacts.Directory
	Responders *ResponderService
}

func NewServices(l *slog.Logger, core *CoreService, acc *account.Service, monitors *monitor.Manager, responders *ResponderService) *Services {
	return &Services{
		l:          l.With(slog.String("module", "services")),
		Core:       core,
		Account:    acc,
		Monitors:   monitors,
		Contacts:   contacts.NewDirectory(),
		Responders: responders,
	}
}
