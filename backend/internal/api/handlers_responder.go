package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"redalert/backend/internal/services"
	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/router"
	"redalert/backend/pkg/utils"
)

func (s *Handler) Dispatch(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[services.Dispatch](r)
	if err != nil {
		return err
	}

	err = s.svc.Responders.Dispatch(r.Context(), chi.URLParam(r, "ownerKey"), req)

	switch {
	case errors.Is(err, services.ErrEmptyDispatch):
		return apicommon.NewValidationError("Set allowed or arrived", map[string]string{
			"allowed": "required when arrived is not set",
			"arrived": "required when allowed is not set",
		})
	case errors.Is(err, services.ErrOwnerNotFound):
		return apicommon.NewError(http.StatusNotFound, "No device registered under this key")
	case err != nil:
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}

func (s *Handler) RegisterDispatch(path string, rb *router.RouteBuilder) {
	rb.MustPut(path, router.RouteSpec{
		OperationID: "dispatchResponder",
		Summary:     "Record a responder status",
		Description: "Used by the fire brigade. allowed=false marks BFP as responding, arrived=true marks BFP as on site. The owner is alerted through the device monitor.",
		Group:       ResponderGroup,
		Security:    apiKeyOnly,
		Parameters: map[string]router.ParameterSpec{
			"ownerKey": {
				In:          router.ParameterInPath,
				Description: "Device key of the owner record",
				Required:    true,
				Type:        "",
			},
		},
		RequestType: &router.RequestBodySpec{
			Type: services.Dispatch{},
			Examples: map[string]any{
				"Responding": services.Dispatch{Allowed: utils.Ptr(false)},
				"Arrived":    services.Dispatch{Arrived: utils.Ptr(true)},
			},
		},
		Handler: apicommon.ErrorHandler(s.Dispatch),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			204: {Description: "Status recorded"},
			400: {Description: "Neither field set", Type: types.ErrorResponse{}},
			401: {Description: "Missing or wrong API key", Type: types.ErrorResponse{}},
			404: {Description: "Unknown device key", Type: types.ErrorResponse{}},
			503: {Description: "Responder access not configured", Type: types.ErrorResponse{}},
		}),
	})
}
