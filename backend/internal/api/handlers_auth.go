package api

import (
	"net/http"
	"time"

	"redalert/backend/internal/account"
	apicommon "redalert/backend/internal/shared/api"
	"redalert/backend/internal/shared/types"
	"redalert/backend/pkg/router"
)

// Acknowledgements returned by the auth endpoints.
const (
	MsgRegistered        = "Account created, check your inbox to verify your email"
	MsgVerificationSent  = "Verification email sent"
	MsgEmailVerified     = "Email verified, you can now log in"
	MsgPasswordResetSent = "Password reset email sent"
	MsgPasswordChanged   = "Password changed, you can now log in"
)

// PasswordResetRequest starts a password reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

func validationExample(message string, fields ...string) types.ErrorResponse {
	e := types.ErrorResponse{RequestID: exampleRequestID, Message: message}
	for _, f := range fields {
		e.AddError(f, message)
	}

	return e
}

func (s *Handler) Register(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[account.RegisterRequest](r)
	if err != nil {
		return err
	}

	res, err := s.svc.Account.Register(r.Context(), req)
	if err != nil {
		return fromAccount(err)
	}

	apicommon.RespondJSON(w, r, http.StatusCreated, res)

	return nil
}

func (s *Handler) RegisterRegister(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "register",
		Summary:     "Register an owner",
		Description: "Creates the owner account, sends the verification email and binds the device model number to the account",
		Group:       AuthGroup,
		RequestType: &router.RequestBodySpec{
			Type: account.RegisterRequest{},
			Examples: map[string]any{
				"Owner": account.RegisterRequest{
					PhoneNumber:     "0917-123-4567",
					Email:           "juan.delacruz@gmail.com",
					ModelNumber:     "RA.01",
					Password:        "s3cretpass",
					ConfirmPassword: "s3cretpass",
					Latitude:        "14.1953",
					Longitude:       "120.8770",
					AgreeTerms:      true,
				},
			},
		},
		Handler: apicommon.ErrorHandler(s.Register),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			201: {
				Description: "Owner registered",
				Type:        account.RegisterResult{},
				Examples: map[string]any{
					"Registered": account.RegisterResult{OwnerKey: "RA_01", UserID: "0195b0c4-5e21-7a8e-9f3c-2d4b6a8c0e20", Email: "juan.delacruz@gmail.com"},
				},
			},
			400: {
				Description: "Invalid registration form",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Missing Fields":   validationExample(account.MsgAllFieldsRequired, "latitude"),
					"Phone Number":     validationExample(account.MsgPhoneDigits, "phoneNumber"),
					"Not Gmail":        validationExample(account.MsgGmailRequired, "email"),
					"Short Password":   validationExample(account.MsgPasswordLength, "password"),
					"Terms Not Agreed": validationExample(account.MsgAgreeTerms, "agreeTerms"),
				},
			},
			409: {
				Description: "Email, phone number or model number already registered",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Email":        validationExample(account.MsgEmailRegistered, "email"),
					"Phone Number": validationExample(account.MsgPhoneRegistered, "phoneNumber"),
					"Model Number": validationExample(account.MsgModelRegistered, "modelNumber"),
				},
			},
		}),
	})
}

func (s *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[account.LoginRequest](r)
	if err != nil {
		return err
	}

	res, err := s.svc.Account.Login(r.Context(), req)
	if err != nil {
		return fromAccount(err)
	}

	apicommon.RespondJSON(w, r, http.StatusOK, res)

	return nil
}

func (s *Handler) RegisterLogin(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "login",
		Summary:     "Log in",
		Description: "Signs in with email and password, opens a session and starts monitoring the owner's device",
		Group:       AuthGroup,
		RequestType: &router.RequestBodySpec{
			Type: account.LoginRequest{},
			Examples: map[string]any{
				"Owner": account.LoginRequest{Email: "juan.delacruz@gmail.com", Password: "s3cretpass"},
			},
		},
		Handler: apicommon.ErrorHandler(s.Login),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Session opened",
				Type:        account.LoginResult{},
				Examples: map[string]any{
					"Logged In": account.LoginResult{
						Token:     "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...",
						ExpiresAt: time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC),
						OwnerKey:  "RA_01",
						UserID:    "0195b0c4-5e21-7a8e-9f3c-2d4b6a8c0e20",
					},
				},
			},
			400: {
				Description: "Invalid login form",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Missing Fields": types.ErrorResponse{RequestID: exampleRequestID, Message: account.MsgFillAllFields},
					"Not Gmail":      validationExample(account.MsgGmailRequired, "email"),
				},
			},
			401: {
				Description: "Wrong email or password",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Incorrect Credentials": types.ErrorResponse{RequestID: exampleRequestID, Message: account.MsgIncorrectCredentials, Action: account.ActionResetPassword},
				},
			},
			403: {
				Description: "Email not verified yet",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Unverified": types.ErrorResponse{RequestID: exampleRequestID, Message: account.MsgVerifyEmail, Action: account.ActionResendVerification},
				},
			},
			404: {
				Description: "No device registered to the account",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"No Device": types.ErrorResponse{RequestID: exampleRequestID, Message: account.MsgNoDevice},
				},
			},
		}),
	})
}

func (s *Handler) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, ok := sessionFrom(r.Context())
	if !ok {
		return apicommon.NewError(http.StatusUnauthorized, account.MsgSessionExpired)
	}

	if err := s.svc.Account.Logout(r.Context(), sess); err != nil {
		return err
	}

	apicommon.RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}

func (s *Handler) RegisterLogout(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "logout",
		Summary:     "Log out",
		Description: "Stops the session's device monitor and revokes the session token",
		Group:       AuthGroup,
		Security:    bearerOnly,
		Handler:     apicommon.ErrorHandler(s.Logout),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			204: {Description: "Logged out"},
			401: unauthorizedResponse(),
		}),
	})
}

func (s *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[account.LoginRequest](r)
	if err != nil {
		return err
	}

	if err := s.svc.Account.ResendVerification(r.Context(), req); err != nil {
		return fromAccount(err)
	}

	apicommon.RespondJSON(w, r, http.StatusAccepted, types.MessageResponse{Message: MsgVerificationSent})

	return nil
}

func (s *Handler) RegisterResendVerification(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "resendVerification",
		Summary:     "Resend the verification email",
		Description: "Re-authenticates with email and password and mails a new verification link when the email is still unverified",
		Group:       AuthGroup,
		RequestType: &router.RequestBodySpec{
			Type: account.LoginRequest{},
			Examples: map[string]any{
				"Owner": account.LoginRequest{Email: "juan.delacruz@gmail.com", Password: "s3cretpass"},
			},
		},
		Handler: apicommon.ErrorHandler(s.ResendVerification),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			202: {
				Description: "Verification email sent",
				Type:        types.MessageResponse{},
				Examples: map[string]any{
					"Sent": types.MessageResponse{Message: MsgVerificationSent},
				},
			},
			400: {Description: "Invalid form", Type: types.ErrorResponse{}},
			401: {
				Description: "Wrong email or password",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Incorrect Credentials": types.ErrorResponse{RequestID: exampleRequestID, Message: account.MsgIncorrectCredentials, Action: account.ActionResetPassword},
				},
			},
		}),
	})
}

func (s *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) error {
	if err := s.svc.Account.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		return fromAccount(err)
	}

	apicommon.RespondJSON(w, r, http.StatusOK, types.MessageResponse{Message: MsgEmailVerified})

	return nil
}

func (s *Handler) RegisterVerifyEmail(path string, rb *router.RouteBuilder) {
	rb.MustGet(path, router.RouteSpec{
		OperationID: "verifyEmail",
		Summary:     "Verify an email address",
		Description: "Target of the link in the verification email",
		Group:       AuthGroup,
		Parameters: map[string]router.ParameterSpec{
			"token": {
				In:          router.ParameterInQuery,
				Description: "One-time verification token",
				Required:    true,
				Type:        "",
			},
		},
		Handler: apicommon.ErrorHandler(s.VerifyEmail),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Email verified",
				Type:        types.MessageResponse{},
				Examples: map[string]any{
					"Verified": types.MessageResponse{Message: MsgEmailVerified},
				},
			},
			400: {
				Description: "Unknown, used or expired token",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Invalid Link": validationExample(account.MsgInvalidLink, "token"),
				},
			},
		}),
	})
}

func (s *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[PasswordResetRequest](r)
	if err != nil {
		return err
	}

	if err := s.svc.Account.ForgotPassword(r.Context(), req.Email); err != nil {
		return fromAccount(err)
	}

	apicommon.RespondJSON(w, r, http.StatusAccepted, types.MessageResponse{Message: MsgPasswordResetSent})

	return nil
}

func (s *Handler) RegisterForgotPassword(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "forgotPassword",
		Summary:     "Request a password reset",
		Description: "Mails a password reset code to the account's email",
		Group:       AuthGroup,
		RequestType: &router.RequestBodySpec{
			Type: PasswordResetRequest{},
			Examples: map[string]any{
				"Owner": PasswordResetRequest{Email: "juan.delacruz@gmail.com"},
			},
		},
		Handler: apicommon.ErrorHandler(s.ForgotPassword),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			202: {
				Description: "Reset email sent",
				Type:        types.MessageResponse{},
				Examples: map[string]any{
					"Sent": types.MessageResponse{Message: MsgPasswordResetSent},
				},
			},
			400: {
				Description: "Email missing",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Missing Email": validationExample(account.MsgEmailRequired, "email"),
				},
			},
			404: {
				Description: "No account for the email",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"No Account": types.ErrorResponse{RequestID: exampleRequestID, Message: account.MsgNoAccount},
				},
			},
		}),
	})
}

func (s *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) error {
	req, err := apicommon.DecodeJSON[account.PasswordResetConfirm](r)
	if err != nil {
		return err
	}

	if err := s.svc.Account.ConfirmPasswordReset(r.Context(), req); err != nil {
		return fromAccount(err)
	}

	apicommon.RespondJSON(w, r, http.StatusOK, types.MessageResponse{Message: MsgPasswordChanged})

	return nil
}

func (s *Handler) RegisterConfirmPasswordReset(path string, rb *router.RouteBuilder) {
	rb.MustPost(path, router.RouteSpec{
		OperationID: "confirmPasswordReset",
		Summary:     "Set a new password",
		Description: "Completes a password reset with the code from the reset email",
		Group:       AuthGroup,
		RequestType: &router.RequestBodySpec{
			Type: account.PasswordResetConfirm{},
			Examples: map[string]any{
				"Reset": account.PasswordResetConfirm{Token: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822c", Password: "n3wpassword", ConfirmPassword: "n3wpassword"},
			},
		},
		Handler: apicommon.ErrorHandler(s.ConfirmPasswordReset),
		Responses: apicommon.GenerateResponses(map[int]router.ResponseSpec{
			200: {
				Description: "Password changed",
				Type:        types.MessageResponse{},
				Examples: map[string]any{
					"Changed": types.MessageResponse{Message: MsgPasswordChanged},
				},
			},
			400: {
				Description: "Invalid form or reset code",
				Type:        types.ErrorResponse{},
				Examples: map[string]any{
					"Mismatch":     validationExample(account.MsgPasswordsMismatch, "confirmPassword"),
					"Invalid Code": validationExample(account.MsgInvalidLink, "token"),
				},
			},
		}),
	})
}
