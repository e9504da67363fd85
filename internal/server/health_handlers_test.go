package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t, "")

	live := env.get(t, "/health/live", "")
	assert.Equal(t, http.StatusOK, live.StatusCode)

	ready := env.get(t, "/health/ready", "")
	require.Equal(t, http.StatusOK, ready.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(ready.Body).Decode(&body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "up", body.Checks["redis"])
}

func TestReadinessDegradesWithoutRedis(t *testing.T) {
	env := newTestEnv(t, "")
	env.redis.Close()

	resp := env.get(t, "/health/ready", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
}

func TestLiveFeedRequiresToken(t *testing.T) {
	env := newTestEnv(t, "live_feed=on")

	resp := env.get(t, "/ws", "")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
