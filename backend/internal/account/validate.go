package account

import (
	"strconv"
	"strings"

	"redalert/backend/internal/realtime"
)

const (
	phoneDigits       = 11
	minPasswordLength = 8
	gmailSuffix       = "@gmail.com"
)

// SanitizeModelNumber makes a model number usable as a database key.
func SanitizeModelNumber(model string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '#', '$', '[', ']':
			return '_'
		}

		return r
	}, model)
}

// StandardizePhoneNumber drops every non-digit.
func StandardizePhoneNumber(phone string) string {
	return strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}

		return r
	}, phone)
}

// isDeviceKey reports whether the sanitized model number can key Owner.
func isDeviceKey(model string) bool {
	_, err := realtime.ParsePath(realtime.Child(realtime.CollectionOwner, SanitizeModelNumber(model)))
	return err == nil
}

func isGmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), gmailSuffix)
}

func isCoordinate(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	PhoneNumber     string `json:"phoneNumber"`
	Email           string `json:"email"`
	ModelNumber     string `json:"modelNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Latitude        string `json:"latitude"`
	Longitude       string `json:"longitude"`
	AgreeTerms      bool   `json:"agreeTerms"`
}

// Validate checks the form in the order the owner sees the messages.
func (r RegisterRequest) Validate() error {
	var missing []string

	for _, f := range []struct{ name, value string }{
		{"phoneNumber", r.PhoneNumber},
		{"email", r.Email},
		{"modelNumber", r.ModelNumber},
		{"password", r.Password},
		{"confirmPassword", r.ConfirmPassword},
		{"latitude", r.Latitude},
		{"longitude", r.Longitude},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return invalid(MsgAllFieldsRequired, missing...)
	}

	if r.Password != r.ConfirmPassword {
		return invalid(MsgPasswordsMismatch, "confirmPassword")
	}

	if !r.AgreeTerms {
		return invalid(MsgAgreeTerms, "agreeTerms")
	}

	if len(StandardizePhoneNumber(r.PhoneNumber)) != phoneDigits {
		return invalid(MsgPhoneDigits, "phoneNumber")
	}

	if !isGmail(r.Email) {
		return invalid(MsgGmailRequired, "email")
	}

	if len(r.Password) < minPasswordLength {
		return invalid(MsgPasswordLength, "password")
	}

	if !isCoordinate(r.Latitude) || !isCoordinate(r.Longitude) {
		return invalid(MsgInvalidCoordinate, "latitude", "longitude")
	}

	if !isDeviceKey(r.ModelNumber) {
		return invalid(MsgInvalidModelNumber, "modelNumber")
	}

	return nil
}

// LoginRequest is the login form.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return invalid(MsgFillAllFields)
	}

	if !isGmail(r.Email) {
		return invalid(MsgGmailRequired, "email")
	}

	return nil
}

// ProfileUpdate holds the edited profile fields. Empty fields are left alone.
type ProfileUpdate struct {
	Email           string `json:"email,omitempty"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	Latitude        string `json:"latitude,omitempty"`
	Longitude       string `json:"longitude,omitempty"`
	Password        string `json:"password,omitempty"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

func (u ProfileUpdate) Validate() error {
	if u.Password != "" && u.Password != u.ConfirmPassword {
		return invalid(MsgPasswordsMismatch, "confirmPassword")
	}

	if u.PhoneNumber != "" && len(StandardizePhoneNumber(u.PhoneNumber)) != phoneDigits {
		return invalid(MsgPhoneDigits, "phoneNumber")
	}

	if u.Email != "" && !isGmail(u.Email) {
		return invalid(MsgGmailRequired, "email")
	}

	if (u.Latitude != "" && !isCoordinate(u.Latitude)) || (u.Longitude != "" && !isCoordinate(u.Longitude)) {
		return invalid(MsgInvalidCoordinate, "latitude", "longitude")
	}

	return nil
}

// PasswordResetConfirm completes a reset.
type PasswordResetConfirm struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r PasswordResetConfirm) Validate() error {
	if r.Token == "" || r.Password == "" || r.ConfirmPassword == "" {
		return invalid(MsgFillAllFields)
	}

	if r.Password != r.ConfirmPassword {
		return invalid(MsgPasswordsMismatch, "confirmPassword")
	}

	if len(r.Password) < minPasswordLength {
		return invalid(MsgPasswordLength, "password")
	}

	return nil
}
