package api

import (
	"net/http"

	"redalert/backend/internal/account"
	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/router"
)

var exampleProfile = account.Profile{
	OwnerKey:    "RA_01",
	Email:       "juan.delacruz@gmail.com",
	PhoneNumber: "09171234567",
	Latitude:    "14.1953",
	Longitude:   "120.877",
}

func (s *Handler) GetProfile(w http.ResponseWriter, r *http.Request) error {
	sess, ok := sessionFrom(r.Context())
	if !ok {
		return apicommon.NewError(http.StatusUnauthorized, account.MsgSessionExpired)
	}

	profile, err := s.svc.Account.Profile(r.Context(), sess)
	if err != nil {
		return fromAccount(err)
	}

	apicommon.RespondJSON(w, r, http.StatusOK, profile)

	return nil
}

func (s *Handler) RegisterGetProfile(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "getProfile",
		Summary:     "Get the owner profile",
		Description: "Reads the owner record of the device bound to the session's account",
		Group:       ProfileGroup,
		Security:    bearerOnly,
		Handler:     apicommon.ErrorHandler(s.GetProfile),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Owner profile",
				Type:        account.Profile{},
				Examples:    map[string]any{"Profile": exampleProfile},
			},
			401: unauthorizedResponse(),
			404: {
				Description: "No device registered to the account",
				Type:        types.ErrorResponse{},
			},
		}),
	})
}

func (s *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) error {
	sess, ok := sessionFrom(r.Context())
	if !ok {
		return apicommon.NewError(http.StatusUnauthorized, account.MsgSessionExpired)
	}

	req, err := apicommon.DecodeJSON[account.ProfileUpdate](r)
	if err != nil {
		return err
	}

	profile, err := s.svc.Account.UpdateProfile(r.Context(), sess, req)
	if err != nil {
		return fromAccount(err)
	}

	apicommon.RespondJSON(w, r, http.StatusOK, profile)

	return nil
}

func (s *Handler) RegisterUpdateProfile(path string, rb *router.RouteBuilder) {
	rb.MustPut(path, router.RouteSpec{
		OperationID: "updateProfile",
		Summary:     "Update the owner profile",
		Description: "Changes any of email, phone number, coordinates and password. Omitted fields are left unchanged. A new email must be verified again.",
		Group:       ProfileGroup,
		Security:    bearerOnly,
		RequestType: &router.RequestBodySpec{
			Type: account.ProfileUpdate{},
			Examples: map[string]any{
				"Phone Number": account.ProfileUpdate{PhoneNumber: "0918-765-4321"},
				"Password":     account.ProfileUpdate{Password: "n3wpassword", ConfirmPassword: "n3wpassword"},
			},
		},
		Handler: apicommon.ErrorHandler(s.UpdateProfile),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Updated profile",
				Type:        account.Profile{},
				Examples:    map[string]any{"Profile": exampleProfile},
			},
			400: {
				Description: "Invalid profile fields",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Mismatch":     validationExample(account.MsgPasswordsMismatch, "confirmPassword"),
					"Phone Number": validationExample(account.MsgPhoneDigits, "phoneNumber"),
					"Not Gmail":    validationExample(account.MsgGmailRequired, "email"),
				},
			},
			401: unauthorizedResponse(),
			409: {
				Description: "Email already registered",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Email": validationExample(account.MsgEmailRegistered, "email"),
				},
			},
		}),
	})
}
