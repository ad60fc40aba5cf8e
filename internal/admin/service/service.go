package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"escuela/internal/admin/lockout"
	"escuela/internal/admin/secrets"
	jwttoken "escuela/internal/jwt_token"
	"escuela/internal/platform/metrics"
	dErrors "escuela/pkg/domain-errors"
	"escuela/pkg/requestcontext"
)

const (
	loginSuccess = "success"
	loginFailure = "failure"
	loginLocked  = "locked"
)

// TokenIssuer signs session credentials.
type TokenIssuer interface {
	GenerateAccessToken(username, role string, expiresIn time.Duration) (string, error)
}

// Credentials is the single admin identity. PasswordHash, when set, wins
// over the plaintext Password.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token    string
	Username string
	Role     string
}

type Service struct {
	credentials Credentials
	tokens      TokenIssuer
	lockouts    lockout.Store
	tokenTTL    time.Duration
	maxAttempts int
	// maxUserAttempts bounds attempts on one username across all clients.
	maxUserAttempts int
	window          time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.tokenTTL = ttl
	}
}

// WithLockout sets how many attempts one client may make inside window.
func WithLockout(maxAttempts int, window time.Duration) Option {
	return func(s *Service) {
		s.maxAttempts = maxAttempts
		s.window = window
	}
}

// WithUserLockout sets how many attempts a username may receive inside the
// window across all clients.
func WithUserLockout(maxAttempts int) Option {
	return func(s *Service) {
		s.maxUserAttempts = maxAttempts
	}
}

func New(creds Credentials, tokens TokenIssuer, lockouts lockout.Store, opts ...Option) (*Service, error) {
	if creds.Username == "" {
		return nil, errors.New("admin username is required")
	}
	if creds.Password == "" && creds.PasswordHash == "" {
		return nil, errors.New("admin password or password hash is required")
	}
	if creds.PasswordHash != "" && !secrets.IsHash(creds.PasswordHash) {
		return nil, errors.New("admin password hash is not a bcrypt hash")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if lockouts == nil {
		return nil, errors.New("lockout store is required")
	}

	s := &Service{
		credentials:     creds,
		tokens:          tokens,
		lockouts:        lockouts,
		tokenTTL:        8 * time.Hour,
		maxAttempts:     5,
		maxUserAttempts: 20,
		window:          15 * time.Minute,
		logger:          slog.Default(),
		tracer:          otel.Tracer("escuela/admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login checks the admin credentials and issues a session token. Every
// attempt is counted before the password is checked, per username and
// client IP and per username alone; once either limit is passed the attempt
// is refused until the window expires, even with the right password.
func (s *Service) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "admin.Login")
	defer span.End()

	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Usuario y contrasena son requeridos")
	}

	requestID := requestcontext.RequestID(ctx)
	clientKey := lockout.Key(username, ip)
	userKey := lockout.UserKey(username)

	attempts, err := s.lockouts.RecordAttempt(ctx, clientKey, s.window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lockout counter failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count login attempts")
	}
	userAttempts, err := s.lockouts.RecordAttempt(ctx, userKey, s.window)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lockout counter failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count login attempts")
	}
	if attempts > s.maxAttempts || userAttempts > s.maxUserAttempts {
		s.logger.WarnContext(ctx, "admin login locked out",
			"ip", ip,
			"attempts", attempts,
			"user_attempts", userAttempts,
			"request_id", requestID,
		)
		s.observe(loginLocked)
		return nil, dErrors.New(dErrors.CodeTooManyAttempts, "Demasiados intentos, intente mas tarde")
	}

	if err := s.verify(username, password); err != nil {
		if !errors.Is(err, secrets.ErrMismatch) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "password verification failed")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
		}
		s.logger.WarnContext(ctx, "admin login rejected",
			"ip", ip,
			"attempts", attempts,
			"request_id", requestID,
		)
		s.observe(loginFailure)
		return nil, dErrors.New(dErrors.CodeInvalidCredentials, "Credenciales incorrectas")
	}

	for _, key := range []string{clientKey, userKey} {
		if err := s.lockouts.Clear(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to clear login attempts",
				"error", err,
				"request_id", requestID,
			)
		}
	}

	token, err := s.tokens.GenerateAccessToken(username, jwttoken.RoleAdmin, s.tokenTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token signing failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logger.InfoContext(ctx, "admin login succeeded",
		"ip", ip,
		"request_id", requestID,
	)
	s.observe(loginSuccess)
	return &LoginResult{Token: token, Username: username, Role: jwttoken.RoleAdmin}, nil
}

// verify always runs both comparisons so a wrong username costs the same as
// a wrong password.
func (s *Service) verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.credentials.Username)) == 1

	var err error
	if s.credentials.PasswordHash != "" {
		err = secrets.Verify(password, s.credentials.PasswordHash)
	} else {
		err = secrets.Equal(password, s.credentials.Password)
	}
	if err != nil {
		return err
	}
	if !userOK {
		return secrets.ErrMismatch
	}
	return nil
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(result)
	}
}
