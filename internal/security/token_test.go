package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func TestServiceTokenRoundTrip(t *testing.T) {
	token, err := GenerateServiceToken(testSecret, "recipe-service", "u1", time.Hour)
	require.NoError(t, err)

	claims, err := ParseServiceToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "recipe-service", claims.Service)
	assert.Equal(t, "u1", claims.Uploader)
	assert.Equal(t, "recipe-service", claims.Subject)
}

func TestServiceTokenWithoutUploader(t *testing.T) {
	token, err := GenerateServiceToken(testSecret, "scheduler", "", time.Hour)
	require.NoError(t, err)

	claims, err := ParseServiceToken(token, testSecret)
	require.NoError(t, err)
	assert.Empty(t, claims.Uploader)
}

func TestParseServiceTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateServiceToken(testSecret, "recipe-service", "u1", time.Hour)
	require.NoError(t, err)

	_, err = ParseServiceToken(token, "some-other-secret")
	assert.Error(t, err)
}

func TestParseServiceTokenRejectsExpired(t *testing.T) {
	token, err := GenerateServiceToken(testSecret, "recipe-service", "u1", -time.Minute)
	require.NoError(t, err)

	_, err = ParseServiceToken(token, testSecret)
	assert.Error(t, err)
}

func TestParseServiceTokenRejectsGarbage(t *testing.T) {
	_, err := ParseServiceToken("not.a.token", testSecret)
	assert.Error(t, err)
}
