package api

import (
	"net/http"

	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/router"
	"redalert/backend/pkg/utils"
)

var pong = types.PingResponse{Message: "Pong", Status: types.PingStatusOK}

func (s *Handler) Ping(w http.ResponseWriter, r *http.Request) error {
	apicommon.RespondJSON(w, r, http.StatusOK, pong)

	return nil
}

func (s *Handler) RegisterPing(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "ping",
		Summary:     "Ping the server",
		Description: "Check if the server is alive",
		Group:       CoreGroup,
		RequestType: nil,
		Handler:     apicommon.ErrorHandler(s.Ping),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Successful ping response",
				Type:        types.PingResponse{},
				Examples: map[string]any{
					"Success": pong,
				},
			},
		}),
	})
}

func (s *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	status := s.svc.Core.Health(r.Context())
	resp := types.HealthResponse{
		Status:   types.PingStatusOK,
		Database: status.Database,
		MQTT:     status.MQTT,
		Sessions: status.Sessions,
		Build:    utils.GetBuildInfo(),
	}

	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
		resp.Status = types.PingStatusError
	}

	apicommon.RespondJSON(w, r, code, resp)

	return nil
}

func (s *Handler) RegisterHealth(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "health",
		Summary:     "Check server health",
		Description: "Reports whether the database, the MQTT broker and the session store are reachable",
		Group:       CoreGroup,
		RequestType: nil,
		Handler:     apicommon.ErrorHandler(s.Health),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Successful health response",
				Type:        types.HealthResponse{},
				Examples: map[string]any{
					"Success": types.HealthResponse{Status: types.PingStatusOK, Database: true, MQTT: true, Sessions: true},
				},
			},
			503: {
				Description: "Server unavailable",
				Type:        types.HealthResponse{},
				Examples: map[string]any{
					"Database Unavailable": types.HealthResponse{Status: types.PingStatusError, MQTT: true, Sessions: true},
					"MQTT Unavailable":     types.HealthResponse{Status: types.PingStatusError, Database: true, Sessions: true},
					"Sessions Unavailable": types.HealthResponse{Status: types.PingStatusError, Database: true, MQTT: true},
				},
			},
		}),
	})
}
