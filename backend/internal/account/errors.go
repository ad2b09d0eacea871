package account

import "errors"

// Kind classifies account errors for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Remediation actions offered with auth errors.
const (
	ActionResendVerification = "resendVerification"
	ActionResetPassword      = "resetPassword"
)

// Error is a user-facing failure. Anything else returned by Service is a
// backend failure.
type Error struct {
	Kind    Kind
	Message string
	Action  string
	// Fields maps request fields to problems, set for validation errors.
	Fields map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

func invalid(message string, fields ...string) *Error {
	e := &Error{Kind: KindValidation, Message: message}
	if len(fields) > 0 {
		e.Fields = make(map[string]string, len(fields))
		for _, f := range fields {
			e.Fields[f] = message
		}
	}

	return e
}

func conflict(message string, field string) *Error {
	return &Error{Kind: KindConflict, Message: message, Fields: map[string]string{field: message}}
}

// AsError unwraps an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)

	return e, ok
}

// Messages shown to the owner.
const (
	MsgAllFieldsRequired    = "All fields are required"
	MsgPasswordsMismatch    = "Passwords do not match"
	MsgAgreeTerms           = "Please agree to terms and conditions"
	MsgPhoneDigits          = "Phone number must be 11 digits long"
	MsgGmailRequired        = "Please enter a Gmail address"
	MsgPasswordLength       = "Password must be 8 characters long or more"
	MsgEmailRegistered      = "Email is already registered"
	MsgPhoneRegistered      = "This phone number is already registered"
	MsgModelRegistered      = "This model number is already registered"
	MsgFillAllFields        = "Please fill in all fields"
	MsgIncorrectCredentials = "Incorrect email or password"
	MsgVerifyEmail          = "Please verify your email before logging in"
	MsgNoDevice             = "No device is registered to this account"
	MsgEmailRequired        = "Please fill in the email field"
	MsgNoAccount            = "No account found for this email"
	MsgInvalidLink          = "This link is invalid or has expired"
	MsgSessionExpired       = "Session expired, please log in again"
	MsgInvalidCoordinate    = "Latitude and longitude must be numbers"
	MsgInvalidModelNumber   = "Model number may not contain /, + or #"
)
