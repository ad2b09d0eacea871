package api

import (
	"errors"
	"net/http"

	"redalert/backend/internal/account"
	"redalert/backend/internal/monitor"
	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/pkg/router"
)

// Monitor returns the live view of the session's device. Sessions that
// outlived a restart get their monitor started again here.
func (s *Handler) Monitor(w http.ResponseWriter, r *http.Request) error {
	sess, ok := sessionFrom(r.Context())
	if !ok {
		return apicommon.NewError(http.StatusUnauthorized, account.MsgSessionExpired)
	}

	m, err := s.svc.Account.AttachMonitor(r.Context(), sess)
	if errors.Is(err, monitor.ErrSessionExpired) {
		return apicommon.NewError(http.StatusUnauthorized, account.MsgSessionExpired)
	}

	if err != nil {
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusOK, m.View())

	return nil
}

func (s *Handler) RegisterMonitor(path string, rb *router.RouteBuilder) {
	example := monitor.NewState("0195b0c4-5e21-7a8e-9f3c-2d4b6a8c0e20").View()

	rb.MustGet(path, router.RouteSpec{
		OperationID: "getMonitor",
		Summary:     "Get the device status",
		Description: "Current derived status of the session's device: readout, map pin, responder flags and the recent log series",
		Group:       MonitorGroup,
		Security:    bearerOnly,
		Handler:     apicommon.ErrorHandler(s.Monitor),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Device status",
				Type:        monitor.View{},
				Examples:    map[string]any{"Waiting For Device": example},
			},
			401: unauthorizedResponse(),
		}),
	})
}
