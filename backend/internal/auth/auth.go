// Package auth is the identity provider: email/password accounts, email
// verification and password reset.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"redalert/backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Token kinds.
const (
	TokenVerifyEmail   = "verify_email"
	TokenResetPassword = "reset_password"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

// User is the public view of an account.
type User struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Account is the stored account row.
type Account struct {
	UID           string    `db:"uid"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	EmailVerified bool      `db:"email_verified"`
	CreatedAt     time.Time `db:"created_at"`
}

func (a Account) user() User {
	return User{UID: a.UID, Email: a.Email, EmailVerified: a.EmailVerified, CreatedAt: a.CreatedAt}
}

// Token is a one-time verification or reset token.
type Token struct {
	Token     string    `db:"token"`
	UID       string    `db:"uid"`
	Kind      string    `db:"kind"`
	ExpiresAt time.Time `db:"expires_at"`
}

// AccountStore persists accounts and tokens. Lookups by email are exact;
// the service lowercases before calling.
type AccountStore interface {
	Insert(ctx context.Context, a Account) error
	ByEmail(ctx context.Context, email string) (Account, error)
	ByUID(ctx context.Context, uid string) (Account, error)
	UpdateEmail(ctx context.Context, uid, email string, verified bool) error
	UpdatePassword(ctx context.Context, uid, hash string) error
	SetVerified(ctx context.Context, uid string) error
	Delete(ctx context.Context, uid string) error
	PutToken(ctx context.Context, t Token) error
	// TakeToken consumes the token; ErrInvalidToken if unknown or of another kind.
	TakeToken(ctx context.Context, token, kind string) (Token, error)
}

// Service implements the identity provider operations.
type Service struct {
	store     AccountStore
	mailer    Mailer
	l         *slog.Logger
	publicURL string
	cost      int
	now       func() time.Time

	// serializes email uniqueness checks
	mu sync.Mutex
}

// NewService returns a Service that mails links rooted at publicURL.
func NewService(l *slog.Logger, store AccountStore, mailer Mailer, publicURL string) *Service {
	return &Service{
		store:     store,
		mailer:    mailer,
		l:         l.With(slog.String("component", "auth")),
		publicURL: strings.TrimSuffix(publicURL, "/"),
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an unverified account.
func (s *Service) SignUp(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.ByEmail(ctx, email); err == nil {
		return User{}, ErrEmailInUse
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	a := Account{
		UID:          utils.NewUUID(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.Insert(ctx, a); err != nil {
		return User{}, err
	}

	s.l.Info("Account created", slog.String("uid", a.UID))

	return a.user(), nil
}

// SignIn checks credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *Service) SignIn(ctx context.Context, email, password string) (User, error) {
	a, err := s.store.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}

	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return a.user(), nil
}

// User returns the current state of an account.
func (s *Service) User(ctx context.Context, uid string) (User, error) {
	a, err := s.store.ByUID(ctx, uid)
	if err != nil {
		return User{}, err
	}

	return a.user(), nil
}

// SendVerificationEmail mails a one-time verification link to the user.
func (s *Service) SendVerificationEmail(ctx context.Context, user User) error {
	token, err := s.issueToken(ctx, user.UID, TokenVerifyEmail, verifyTokenTTL)
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, Message{
		To:      user.Email,
		Subject: "Verify your Red Alert account",
		Body:    "Open this link to verify your email address:\n" + s.publicURL + "/api/auth/verify?token=" + token,
	})
}

// VerifyEmail consumes a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	t, err := s.store.TakeToken(ctx, token, TokenVerifyEmail)
	if err != nil {
		return err
	}

	if s.now().After(t.ExpiresAt) {
		return ErrInvalidToken
	}

	return s.store.SetVerified(ctx, t.UID)
}

// SendPasswordReset mails a reset token. Unknown emails return ErrUserNotFound.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	a, err := s.store.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}

	token, err := s.issueToken(ctx, a.UID, TokenResetPassword, resetTokenTTL)
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, Message{
		To:      a.Email,
		Subject: "Reset your Red Alert password",
		Body:    "Use this code to reset your password within the hour:\n" + token,
	})
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	t, err := s.store.TakeToken(ctx, token, TokenResetPassword)
	if err != nil {
		return err
	}

	if s.now().After(t.ExpiresAt) {
		return ErrInvalidToken
	}

	return s.setPassword(ctx, t.UID, newPassword)
}

// UpdateEmail changes the sign-in email. The new address must be verified again.
func (s *Service) UpdateEmail(ctx context.Context, user User, newEmail string) (User, error) {
	newEmail = normalizeEmail(newEmail)

	s.mu.Lock()

	if existing, err := s.store.ByEmail(ctx, newEmail); err == nil && existing.UID != user.UID {
		s.mu.Unlock()
		return User{}, ErrEmailInUse
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.mu.Unlock()
		return User{}, err
	}

	err := s.store.UpdateEmail(ctx, user.UID, newEmail, false)
	s.mu.Unlock()

	if err != nil {
		return User{}, err
	}

	updated, err := s.User(ctx, user.UID)
	if err != nil {
		return User{}, err
	}

	if err := s.SendVerificationEmail(ctx, updated); err != nil {
		s.l.Warn("Failed to send verification after email change", slog.String("uid", user.UID), utils.ErrAttr(err))
	}

	return updated, nil
}

// UpdatePassword replaces the password of user.
func (s *Service) UpdatePassword(ctx context.Context, user User, newPassword string) error {
	return s.setPassword(ctx, user.UID, newPassword)
}

// DeleteUser removes the account and its tokens.
func (s *Service) DeleteUser(ctx context.Context, user User) error {
	if err := s.store.Delete(ctx, user.UID); err != nil {
		return err
	}

	s.l.Info("Account deleted", slog.String("uid", user.UID))

	return nil
}

func (s *Service) setPassword(ctx context.Context, uid, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.store.UpdatePassword(ctx, uid, string(hash))
}

func (s *Service) issueToken(ctx context.Context, uid, kind string, ttl time.Duration) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	t := Token{
		Token:     hex.EncodeToString(buf),
		UID:       uid,
		Kind:      kind,
		ExpiresAt: s.now().Add(ttl).UTC(),
	}

	if err := s.store.PutToken(ctx, t); err != nil {
		return "", err
	}

	return t.Token, nil
}
