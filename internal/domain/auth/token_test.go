package auth

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("catalog-test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifier_Verify(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		token    func(t *testing.T) string
		wantRole string
		wantKind VerificationKind
	}{
		{
			name: "valid HS256 with role",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"role": "ADMIN", "sub": "alice"})
			},
			wantRole: "ADMIN",
		},
		{
			name: "valid HS512 without exp",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodHS512, testSecret, jwt.MapClaims{"role": "EDITOR"})
			},
			wantRole: "EDITOR",
		},
		{
			name: "exp in the future",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodHS384, testSecret, jwt.MapClaims{
					"role": "EDITOR",
					"exp":  now.Add(time.Hour).Unix(),
				})
			},
			wantRole: "EDITOR",
		},
		{
			name:     "garbage",
			token:    func(*testing.T) string { return "not-a-token" },
			wantKind: KindMalformed,
		},
		{
			name:     "empty",
			token:    func(*testing.T) string { return "" },
			wantKind: KindMalformed,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodHS256, []byte("other-secret"), jwt.MapClaims{"role": "ADMIN"})
			},
			wantKind: KindSignature,
		},
		{
			name: "unsigned token",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"role": "ADMIN"})
			},
			wantKind: KindSignature,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
					"role": "ADMIN",
					"exp":  now.Add(-time.Minute).Unix(),
				})
			},
			wantKind: KindExpired,
		},
		{
			name: "no role claim",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "alice"})
			},
			wantKind: KindMissingRole,
		},
		{
			name: "numeric role claim",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"role": 42})
			},
			wantKind: KindMissingRole,
		},
		{
			name: "role claim as list",
			token: func(t *testing.T) string {
				return signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"role": []string{"ADMIN"}})
			},
			wantKind: KindMissingRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(testSecret)
			v.now = func() time.Time { return now }

			claims, err := v.Verify(tt.token(t))
			if tt.wantKind != 0 {
				var verr *VerificationError
				require.True(t, errors.As(err, &verr), "want *VerificationError, got %v", err)
				assert.Equal(t, tt.wantKind, verr.Kind)
				assert.Empty(t, claims.Role)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, claims.Role)
		})
	}
}

func TestNewVerifier_CopiesSecret(t *testing.T) {
	secret := append([]byte(nil), testSecret...)
	v := NewVerifier(secret)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"role": "ADMIN"})

	secret[0] ^= 0xff

	_, err := v.Verify(token)
	require.NoError(t, err)
}
