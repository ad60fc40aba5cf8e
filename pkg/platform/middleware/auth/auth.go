package auth

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "escuela/pkg/domain-errors"
	"escuela/pkg/platform/httputil"
	"escuela/pkg/requestcontext"
)

// JWTValidator defines the interface for validating bearer credentials.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the identity the validator extracts from a credential.
type JWTClaims struct {
	Username string
	Role     string
}

// ValidatorFunc adapts a function to JWTValidator.
type ValidatorFunc func(tokenString string) (*JWTClaims, error)

func (f ValidatorFunc) ValidateToken(tokenString string) (*JWTClaims, error) {
	return f(tokenString)
}

// RequireAuth rejects requests without a bearer credential (401) or with one
// the validator refuses (403). On success the identity is stored with
// requestcontext.WithIdentity.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeMissingCredential, "Token requerido"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "forbidden access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidCredential, "Token invalido"))
				return
			}

			ctx = requestcontext.WithIdentity(ctx, claims.Username, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const bearerPrefix = "Bearer "
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
