package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTManager_RoundTrip(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)
	userID := uuid.New().String()

	token, err := mgr.Generate(userID, "user@example.com")
	require.NoError(t, err)

	claims, err := mgr.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "modelgate", claims.Issuer)
}

func TestJWTManager_Expired(t *testing.T) {
	mgr := NewJWTManager(testSecret, -time.Minute)

	token, err := mgr.Generate(uuid.New().String(), "user@example.com")
	require.NoError(t, err)

	_, err = mgr.Validate(token)
	assert.Error(t, err)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)
	other := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour)

	token, err := mgr.Generate(uuid.New().String(), "user@example.com")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}
