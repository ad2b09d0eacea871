// Package account implements the owner flows: registration, login, email
// verification, password reset, profile editing and logout.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"redalert/backend/internal/auth"
	"redalert/backend/internal/monitor"
	"redalert/backend/internal/realtime"
	"redalert/backend/internal/session"
	"redalert/backend/pkg/utils"
)

// Identity is the identity provider.
type Identity interface {
	SignUp(ctx context.Context, email, password string) (auth.User, error)
	SignIn(ctx context.Context, email, password string) (auth.User, error)
	User(ctx context.Context, uid string) (auth.User, error)
	SendVerificationEmail(ctx context.Context, user auth.User) error
	VerifyEmail(ctx context.Context, token string) error
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	UpdateEmail(ctx context.Context, user auth.User, newEmail string) (auth.User, error)
	UpdatePassword(ctx context.Context, user auth.User, newPassword string) error
	DeleteUser(ctx context.Context, user auth.User) error
}

// Database is the part of the realtime database the flows use.
type Database interface {
	ReadOnce(ctx context.Context, path string) (realtime.Snapshot, error)
	Write(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	QueryEqualTo(ctx context.Context, collection, field string, value any) (realtime.Snapshot, error)
}

// Monitors shares one telemetry monitor per owner between its live sessions.
type Monitors interface {
	Attach(ctx context.Context, sessionID, ownerKey, userID string, expiresAt time.Time) (*monitor.Monitor, error)
	Detach(sessionID string)
}

// OwnerRecord is written to Owner/{deviceKey} at registration.
// Coordinates keep the text the owner typed.
type OwnerRecord struct {
	UserID      string `json:"userId"`
	PhoneNumber string `json:"PhoneNumber"`
	Email       string `json:"Email"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Arrived     bool   `json:"arrived"`
	Allowed     bool   `json:"allowed"`
}

// Profile is the editable part of the owner record.
type Profile struct {
	OwnerKey    string `json:"ownerKey"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
}

// RegisterResult identifies the new account and device.
type RegisterResult struct {
	OwnerKey string `json:"ownerKey"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
}

// LoginResult carries the bearer token of the new session.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	OwnerKey  string    `json:"ownerKey"`
	UserID    string    `json:"userId"`
}

// Service orchestrates the account flows.
type Service struct {
	identity Identity
	db       Database
	sessions session.Store
	issuer   *session.Issuer
	monitors Monitors
	ttl      time.Duration
	now      func() time.Time
	l        *slog.Logger
}

// Deps collects the collaborators of Service.
type Deps struct {
	Identity Identity
	Database Database
	Sessions session.Store
	Issuer   *session.Issuer
	Monitors Monitors
	// SessionTTL is reported back as the token expiry.
	SessionTTL time.Duration
}

func NewService(l *slog.Logger, deps Deps) *Service {
	return &Service{
		identity: deps.Identity,
		db:       deps.Database,
		sessions: deps.Sessions,
		issuer:   deps.Issuer,
		monitors: deps.Monitors,
		ttl:      deps.SessionTTL,
		now:      time.Now,
		l:        l.With(slog.String("component", "account")),
	}
}

// Register creates the auth account, sends the verification email and
// writes the owner record.
//
// Phone and model uniqueness is a linear scan of Owner taken after the
// account exists; two concurrent registrations can both pass it. On a
// conflict the new account is deleted again. A failed owner write leaves the
// account without a device.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if err := req.Validate(); err != nil {
		return RegisterResult{}, err
	}

	email := strings.ToLower(req.Email)
	phone := StandardizePhoneNumber(req.PhoneNumber)
	ownerKey := SanitizeModelNumber(req.ModelNumber)

	user, err := s.identity.SignUp(ctx, email, req.Password)
	if errors.Is(err, auth.ErrEmailInUse) {
		return RegisterResult{}, conflict(MsgEmailRegistered, "email")
	}

	if err != nil {
		return RegisterResult{}, fmt.Errorf("sign up: %w", err)
	}

	l := s.l.With(slog.String("uid", user.UID), slog.String("ownerKey", ownerKey))

	if err := s.identity.SendVerificationEmail(ctx, user); err != nil {
		l.Warn("Failed to send verification email", utils.ErrAttr(err))
	}

	if cerr := s.checkUnique(ctx, phone, ownerKey); cerr != nil {
		if err := s.identity.DeleteUser(ctx, user); err != nil {
			l.Error("Failed to roll back account after conflict", utils.ErrAttr(err))
		}

		return RegisterResult{}, cerr
	}

	record := OwnerRecord{
		UserID:      user.UID,
		PhoneNumber: phone,
		Email:       email,
		Latitude:    strings.TrimSpace(req.Latitude),
		Longitude:   strings.TrimSpace(req.Longitude),
		Arrived:     true,
		Allowed:     true,
	}

	if err := s.db.Write(ctx, realtime.Child(realtime.CollectionOwner, ownerKey), record); err != nil {
		l.Error("Owner record write failed, account left without device", utils.ErrAttr(err))
		return RegisterResult{}, fmt.Errorf("write owner: %w", err)
	}

	l.Info("Owner registered")

	return RegisterResult{OwnerKey: ownerKey, UserID: user.UID, Email: email}, nil
}

// checkUnique scans every owner for the phone number or device key.
func (s *Service) checkUnique(ctx context.Context, phone, ownerKey string) error {
	owners, err := s.db.ReadOnce(ctx, realtime.CollectionOwner)
	if err != nil {
		return fmt.Errorf("read owners: %w", err)
	}

	var phoneTaken, modelTaken bool

	for _, child := range owners.Children() {
		var o struct {
			PhoneNumber string `json:"PhoneNumber"`
		}

		if err := child.Decode(&o); err == nil && o.PhoneNumber == phone {
			phoneTaken = true
		}

		if child.Key() == ownerKey {
			modelTaken = true
		}
	}

	switch {
	case phoneTaken:
		return conflict(MsgPhoneRegistered, "phoneNumber")
	case modelTaken:
		return conflict(MsgModelRegistered, "modelNumber")
	}

	return nil
}

// Login signs in, opens a session and starts its monitor.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if err := req.Validate(); err != nil {
		return LoginResult{}, err
	}

	user, err := s.signIn(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResult{}, err
	}

	if !user.EmailVerified {
		return LoginResult{}, &Error{Kind: KindForbidden, Message: MsgVerifyEmail, Action: ActionResendVerification}
	}

	ownerKey, err := s.ownerKey(ctx, user.UID)
	if err != nil {
		return LoginResult{}, err
	}

	sess := session.Session{
		ID:        utils.NewUUID(),
		OwnerKey:  ownerKey,
		UserID:    user.UID,
		Email:     user.Email,
		CreatedAt: s.now().UTC(),
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	token, err := s.issuer.Sign(sess)
	if err != nil {
		s.dropSession(ctx, sess.ID)
		return LoginResult{}, err
	}

	if _, err := s.AttachMonitor(ctx, sess); err != nil {
		s.dropSession(ctx, sess.ID)
		return LoginResult{}, fmt.Errorf("start monitor: %w", err)
	}

	s.l.Info("Owner logged in", slog.String("uid", user.UID), slog.String("ownerKey", ownerKey), slog.String("sessionID", sess.ID))

	return LoginResult{
		Token:     token,
		ExpiresAt: s.expiresAt(sess),
		OwnerKey:  ownerKey,
		UserID:    user.UID,
	}, nil
}

// AttachMonitor binds sess to its owner's monitor until the session expires.
func (s *Service) AttachMonitor(ctx context.Context, sess session.Session) (*monitor.Monitor, error) {
	return s.monitors.Attach(ctx, sess.ID, sess.OwnerKey, sess.UserID, s.expiresAt(sess))
}

// expiresAt is the zero time when sessions never expire.
func (s *Service) expiresAt(sess session.Session) time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}

	return sess.CreatedAt.Add(s.ttl)
}

func (s *Service) signIn(ctx context.Context, email, password string) (auth.User, error) {
	user, err := s.identity.SignIn(ctx, email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return auth.User{}, &Error{Kind: KindUnauthorized, Message: MsgIncorrectCredentials, Action: ActionResetPassword}
	}

	if err != nil {
		return auth.User{}, fmt.Errorf("sign in: %w", err)
	}

	return user, nil
}

func (s *Service) dropSession(ctx context.Context, id string) {
	if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, session.ErrNotFound) {
		s.l.Warn("Failed to delete session", slog.String("sessionID", id), utils.ErrAttr(err))
	}
}

// ownerKey finds the device registered to uid, the first in key order.
func (s *Service) ownerKey(ctx context.Context, uid string) (string, error) {
	owners, err := s.db.QueryEqualTo(ctx, realtime.CollectionOwner, "userId", uid)
	if err != nil {
		return "", fmt.Errorf("find owner: %w", err)
	}

	children := owners.Children()
	if len(children) == 0 {
		return "", &Error{Kind: KindNotFound, Message: MsgNoDevice}
	}

	return children[0].Key(), nil
}

// ResendVerification re-authenticates and mails a new verification link.
func (s *Service) ResendVerification(ctx context.Context, req LoginRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.signIn(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		return nil
	}

	if err := s.identity.SendVerificationEmail(ctx, user); err != nil {
		return fmt.Errorf("send verification: %w", err)
	}

	return nil
}

// VerifyEmail consumes a verification link token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return invalid(MsgInvalidLink, "token")
	}

	err := s.identity.VerifyEmail(ctx, token)
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrUserNotFound) {
		return invalid(MsgInvalidLink, "token")
	}

	return err
}

// ForgotPassword mails a reset code.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return invalid(MsgEmailRequired, "email")
	}

	err := s.identity.SendPasswordReset(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return &Error{Kind: KindNotFound, Message: MsgNoAccount}
	}

	if err != nil {
		return fmt.Errorf("send reset: %w", err)
	}

	return nil
}

// ConfirmPasswordReset sets a new password from a reset code.
func (s *Service) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error {
	if err := req.Validate(); err != nil {
		return err
	}

	err := s.identity.ConfirmPasswordReset(ctx, req.Token, req.Password)
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrUserNotFound) {
		return invalid(MsgInvalidLink, "token")
	}

	return err
}

// Authenticate resolves a bearer token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (session.Session, error) {
	id, err := s.issuer.Verify(token)
	if err != nil {
		return session.Session{}, &Error{Kind: KindUnauthorized, Message: MsgSessionExpired}
	}

	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		s.monitors.Detach(id)
		return session.Session{}, &Error{Kind: KindUnauthorized, Message: MsgSessionExpired}
	}

	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}

	return sess, nil
}

// Logout stops the monitor and revokes the session.
func (s *Service) Logout(ctx context.Context, sess session.Session) error {
	s.monitors.Detach(sess.ID)

	if err := s.sessions.Delete(ctx, sess.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}

	s.l.Info("Owner logged out", slog.String("uid", sess.UserID), slog.String("sessionID", sess.ID))

	return nil
}

type profileRecord struct {
	Email       string         `json:"Email"`
	PhoneNumber string         `json:"PhoneNumber"`
	Latitude    monitor.Number `json:"latitude"`
	Longitude   monitor.Number `json:"longitude"`
}

// Profile reads the owner record of the session's user.
func (s *Service) Profile(ctx context.Context, sess session.Session) (Profile, error) {
	ownerKey, err := s.ownerKey(ctx, sess.UserID)
	if err != nil {
		return Profile{}, err
	}

	snap, err := s.db.ReadOnce(ctx, realtime.Child(realtime.CollectionOwner, ownerKey))
	if err != nil {
		return Profile{}, fmt.Errorf("read owner: %w", err)
	}

	var rec profileRecord
	if err := snap.Decode(&rec); err != nil {
		return Profile{}, fmt.Errorf("read owner: %w", err)
	}

	return Profile{
		OwnerKey:    ownerKey,
		Email:       rec.Email,
		PhoneNumber: rec.PhoneNumber,
		Latitude:    rec.Latitude.String(),
		Longitude:   rec.Longitude.String(),
	}, nil
}

// UpdateProfile changes email and password in the identity provider, then
// writes the changed fields to the owner record.
func (s *Service) UpdateProfile(ctx context.Context, sess session.Session, u ProfileUpdate) (Profile, error) {
	if err := u.Validate(); err != nil {
		return Profile{}, err
	}

	user, err := s.identity.User(ctx, sess.UserID)
	if err != nil {
		return Profile{}, fmt.Errorf("load user: %w", err)
	}

	email := strings.ToLower(u.Email)

	if email != "" && email != user.Email {
		user, err = s.identity.UpdateEmail(ctx, user, email)
		if errors.Is(err, auth.ErrEmailInUse) {
			return Profile{}, conflict(MsgEmailRegistered, "email")
		}

		if err != nil {
			return Profile{}, fmt.Errorf("update email: %w", err)
		}
	}

	if u.Password != "" {
		if err := s.identity.UpdatePassword(ctx, user, u.Password); err != nil {
			return Profile{}, fmt.Errorf("update password: %w", err)
		}
	}

	ownerKey, err := s.ownerKey(ctx, sess.UserID)
	if err != nil {
		return Profile{}, err
	}

	fields := map[string]any{}
	if email != "" {
		fields["Email"] = email
	}

	if u.PhoneNumber != "" {
		fields["PhoneNumber"] = StandardizePhoneNumber(u.PhoneNumber)
	}

	if u.Latitude != "" {
		fields["latitude"] = strings.TrimSpace(u.Latitude)
	}

	if u.Longitude != "" {
		fields["longitude"] = strings.TrimSpace(u.Longitude)
	}

	if len(fields) > 0 {
		if err := s.db.Update(ctx, realtime.Child(realtime.CollectionOwner, ownerKey), fields); err != nil {
			return Profile{}, fmt.Errorf("update owner: %w", err)
		}
	}

	s.l.Info("Profile updated", slog.String("uid", sess.UserID), slog.Int("fields", len(fields)))

	return s.Profile(ctx, sess)
}
