// Package auth signs shoppers up and in by phone number and keeps the
// resulting identity in the session store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/ceremic-storefront/internal/backend"
	"github.com/example/ceremic-storefront/internal/session"
)

// ModeSwitchError tells the caller to switch from signup to login.
type ModeSwitchError struct {
	Mode    string
	Message string
}

func (e *ModeSwitchError) Error() string {
	return e.Message
}

func (e *ModeSwitchError) Unwrap() error {
	return backend.ErrAccountExists
}

const ModeLogin = "login"

var (
	ErrSignupFailed = errors.New("auth: signup failed")
	ErrLoginFailed  = errors.New("auth: login failed")
)

// Message returns the text shown on the login/signup form for err.
func Message(err error) string {
	var ve *ValidationError
	var ms *ModeSwitchError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ms):
		return ms.Message
	case errors.Is(err, ErrLoginFailed):
		return "Failed to login. Please check your phone number and try again."
	default:
		return "Failed to create account. Please try again."
	}
}

// Backend is the part of the REST client the auth flow uses.
type Backend interface {
	CreateUser(ctx context.Context, u backend.User) (*backend.User, error)
	Login(ctx context.Context, phoneNumber string) (*backend.User, error)
}

type Service struct {
	backend  Backend
	sessions session.Provider
	logger   *slog.Logger
}

func NewService(b Backend, sessions session.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  b,
		sessions: sessions,
		logger:   logger.With("component", "auth"),
	}
}

// Signup validates form, creates the account and stores the session. An
// existing account yields a *ModeSwitchError.
func (s *Service) Signup(ctx context.Context, form SignupForm) (*session.Session, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	u, err := s.backend.CreateUser(ctx, form.normalized())
	if errors.Is(err, backend.ErrAccountExists) {
		s.logger.Info("signup for existing account", "phone_suffix", phoneSuffix(form.PhoneNumber))
		return nil, &ModeSwitchError{
			Mode:    ModeLogin,
			Message: "Account already exists. Please login with your phone number.",
		}
	}
	if err != nil {
		s.logger.Error("signup failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSignupFailed, err)
	}
	return s.store(ctx, *u)
}

// Login validates the phone number, looks the account up and stores the
// session.
func (s *Service) Login(ctx context.Context, phoneNumber string) (*session.Session, error) {
	if err := ValidateLogin(phoneNumber); err != nil {
		return nil, err
	}

	u, err := s.backend.Login(ctx, backend.DigitsOnly(phoneNumber))
	if err != nil {
		s.logger.Error("login failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	return s.store(ctx, *u)
}

func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

func (s *Service) store(ctx context.Context, u backend.User) (*session.Session, error) {
	sess := session.FromUser(u)
	if err := s.sessions.Set(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("session started", "user_id", sess.ID)
	return &sess, nil
}

func phoneSuffix(phone string) string {
	d := backend.DigitsOnly(phone)
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}
