package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushrelay/pushrelay/internal/auth"
)

func newTestService(ttl time.Duration) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-signing-key",
		TokenTTL:   ttl,
	})
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newTestService(time.Hour)

	token, err := svc.IssueServiceToken("order-service")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := svc.ValidateServiceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "order-service", subject)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.IssueServiceToken("order-service")
	require.NoError(t, err)

	_, err = svc.ValidateServiceToken(token)
	assert.ErrorIs(t, err, auth.ErrServiceTokenExpired)
}

func TestJWTService_RejectsWrongKey(t *testing.T) {
	issuer := newTestService(time.Hour)
	verifier := auth.NewJWTService(auth.JWTConfig{SigningKey: "other-key"})

	token, err := issuer.IssueServiceToken("order-service")
	require.NoError(t, err)

	_, err = verifier.ValidateServiceToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidServiceToken)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc := newTestService(time.Hour)

	_, err := svc.ValidateServiceToken("not-a-jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidServiceToken)
}
