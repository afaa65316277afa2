package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/wms-console/internal/shared"
	"github.com/odyssey-erp/wms-console/internal/wmsapi"
)

// ErrRegistrationRejected means the API answered but did not confirm the account.
var ErrRegistrationRejected = errors.New("registration rejected")

// ErrSessionMissing is returned when no session is attached to the request.
var ErrSessionMissing = errors.New("session missing")

// API is the subset of the WMS client used for authentication.
type API interface {
	Login(ctx context.Context, creds wmsapi.Credentials) (wmsapi.LoginResponse, error)
	Register(ctx context.Context, reg wmsapi.Registration) (string, error)
}

// Service wraps authentication rules.
type Service struct {
	api      API
	sessions *shared.SessionManager
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(api API, sessions *shared.SessionManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, sessions: sessions, logger: logger}
}

// Login exchanges credentials for a token and stores the identity on sess.
// Every failure collapses into shared.ErrInvalidCredentials and leaves sess untouched.
func (s *Service) Login(ctx context.Context, sess *shared.Session, username, password string) (shared.Identity, error) {
	if sess == nil {
		return shared.Identity{}, ErrSessionMissing
	}
	resp, err := s.api.Login(ctx, wmsapi.Credentials{Username: username, Password: password})
	if err != nil {
		s.logger.Warn("login request failed", slog.String("username", username), slog.Any("error", err))
		return shared.Identity{}, shared.ErrInvalidCredentials
	}
	token := strings.TrimSpace(resp.Token)
	if token == "" || token == shared.InvalidCredentialsMessage {
		return shared.Identity{}, shared.ErrInvalidCredentials
	}
	role, ok := shared.ParseRole(resp.Role)
	if !ok {
		s.logger.Warn("login returned unknown role", slog.String("username", username), slog.String("role", resp.Role))
		return shared.Identity{}, shared.ErrInvalidCredentials
	}
	name := resp.Username
	if name == "" {
		name = username
	}
	id := shared.Identity{Username: name, Role: role, Token: token}
	sess.SetIdentity(id)

	if info, err := InspectToken(token); err == nil && !info.ExpiresAt.IsZero() {
		s.logger.Debug("token issued", slog.String("username", name), slog.Time("expires_at", info.ExpiresAt))
	}
	return id, nil
}

// Logout clears the identity and destroys the session. Safe to call repeatedly.
func (s *Service) Logout(sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.ClearIdentity()
	if s.sessions != nil {
		s.sessions.Destroy(sess)
	}
}

// Registration is the register form after validation.
type Registration struct {
	Username string
	Password string
	Email    string
	Role     string
}

// Register creates an account. On rejection the returned text is the server's
// explanation, which may be empty.
func (s *Service) Register(ctx context.Context, reg Registration) (string, error) {
	role, ok := shared.ParseRole(reg.Role)
	if !ok {
		return "", shared.ErrValidation
	}
	msg, err := s.api.Register(ctx, wmsapi.Registration{
		Username: reg.Username,
		Password: reg.Password,
		Email:    reg.Email,
		Role:     string(role),
	})
	if err != nil {
		s.logger.Warn("register request failed", slog.String("username", reg.Username), slog.Any("error", err))
		return wmsapi.ServerMessage(err, ""), ErrRegistrationRejected
	}
	if !strings.Contains(strings.ToLower(msg), "success") {
		return msg, ErrRegistrationRejected
	}
	return msg, nil
}

// Restore returns the session identity when token, username and role are all present.
// Expiry is not checked; the API rejects stale tokens with 401.
func Restore(sess *shared.Session) (shared.Identity, bool) {
	id, ok := sess.Identity()
	if !ok || !id.Complete() {
		return shared.Identity{}, false
	}
	return id, true
}
