package jwttoken

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "escuela/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
)
var username = "coordinadora"
var expiresIn = 8 * time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(username, RoleAdmin, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, username, claims.Username)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateAccessToken_UniqueIDs(t *testing.T) {
	first, err := jwtService.GenerateAccessToken(username, RoleAdmin, expiresIn)
	require.NoError(t, err)
	second, err := jwtService.GenerateAccessToken(username, RoleAdmin, expiresIn)
	require.NoError(t, err)

	c1, err := jwtService.ValidateToken(first)
	require.NoError(t, err)
	c2, err := jwtService.ValidateToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredential))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	expiresIn := -time.Hour // Expired token

	token, err := jwtService.GenerateAccessToken(username, RoleAdmin, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func Test_ValidateToken_Rejected(t *testing.T) {
	valid, err := jwtService.GenerateAccessToken(username, RoleAdmin, expiresIn)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name: "signed with another key",
			token: func(t *testing.T) string {
				tok, err := NewJWTService("other-key", "test-issuer").GenerateAccessToken(username, RoleAdmin, expiresIn)
				require.NoError(t, err)
				return tok
			},
		},
		{
			name: "issued by another issuer",
			token: func(t *testing.T) string {
				tok, err := NewJWTService("test-signing-key", "someone-else").GenerateAccessToken(username, RoleAdmin, expiresIn)
				require.NoError(t, err)
				return tok
			},
		},
		{
			name: "tampered signature",
			token: func(t *testing.T) string {
				parts := strings.Split(valid, ".")
				require.Len(t, parts, 3)
				replacement := "A"
				if parts[2][0] == 'A' {
					replacement = "B"
				}
				return parts[0] + "." + parts[1] + "." + replacement + parts[2][1:]
			},
		},
		{
			name: "tampered payload",
			token: func(t *testing.T) string {
				parts := strings.Split(valid, ".")
				require.Len(t, parts, 3)
				forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "intruso", Role: RoleAdmin}).
					SignedString([]byte("other-key"))
				require.NoError(t, err)
				return parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]
			},
		},
		{
			name: "alg none",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
					Username: username,
					Role:     RoleAdmin,
					RegisteredClaims: jwt.RegisteredClaims{
						Issuer:    "test-issuer",
						ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
					},
				}).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return tok
			},
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
					Username:         username,
					Role:             RoleAdmin,
					RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer"},
				}).SignedString([]byte("test-signing-key"))
				require.NoError(t, err)
				return tok
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jwtService.ValidateToken(tt.token(t))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCredential))
		})
	}
}

func Test_Adapter(t *testing.T) {
	adapter := NewJWTServiceAdapter(jwtService)
	token, err := jwtService.GenerateAccessToken(username, RoleAdmin, expiresIn)
	require.NoError(t, err)

	claims, err := adapter.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, username, claims.Username)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = adapter.ValidateToken("nope")
	assert.Error(t, err)
}
