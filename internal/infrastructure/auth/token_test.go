package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestTokenService() *TokenService {
	return NewTokenService(testSecret, "erp-bridge", time.Hour)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := newTestTokenService()

	token, expiresAt, err := svc.Issue("scheduler", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "scheduler", claims.Subject)
	assert.Equal(t, "erp-bridge", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{Audience}, claims.Audience)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_Validate(t *testing.T) {
	svc := newTestTokenService()

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.RegisteredClaims {
		now := time.Now()
		return jwt.RegisteredClaims{
			Issuer:    "erp-bridge",
			Subject:   "shop",
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
	}

	t.Run("wrong secret", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-00"), valid())
		_, err := svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := valid()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := svc.Validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		claims := valid()
		claims.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
		_, err := svc.Validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := valid()
		claims.ExpiresAt = nil
		_, err := svc.Validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		claims := valid()
		claims.Issuer = "someone-else"
		_, err := svc.Validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other audience", func(t *testing.T) {
		claims := valid()
		claims.Audience = jwt.ClaimStrings{"erp-backend"}
		_, err := svc.Validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other hmac algorithm", func(t *testing.T) {
		_, err := svc.Validate(sign(t, jwt.SigningMethodHS512, []byte(testSecret), valid()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())
		_, err := svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := valid()
		claims.Subject = ""
		_, err := svc.Validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
		assert.ErrorIs(t, err, ErrMissingSubject)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_Disabled(t *testing.T) {
	svc := NewTokenService("", "erp-bridge", time.Hour)
	assert.False(t, svc.Enabled())

	_, _, err := svc.Issue("scheduler", 0)
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = svc.Validate("anything")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	_, _, err := newTestTokenService().Issue("", time.Minute)
	assert.ErrorIs(t, err, ErrMissingSubject)
}
