package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestRegisterAndLoginRoutes(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, _ = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada again", "email": "ADA@example.com", "password": "longenough",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Short", "email": "short@example.com", "password": "tiny",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "invalid email or password")

	status, body = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusOK, status)
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &session))
	require.NotEmpty(t, session.Token)

	status, body = env.do(t, http.MethodGet, "/me", session.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"email":"ada@example.com"`)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/me", "/me/stats", "/leaderboard", "/admin/scores"} {
		status, _ := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}
	status, _ := env.do(t, http.MethodGet, "/me", "forged.token.value", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/materials", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Animal Farm")

	status, body = env.do(t, http.MethodGet, "/materials/animal-farm/quizzes", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "animal-farm-1")
	assert.False(t, strings.Contains(string(body), "correct_answer"), "quiz listing must not include questions")
}

func TestLeaderboardAndStatsRoutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	adaID, adaToken := env.signIn(t, "Ada", "ada@example.com")
	_, bobToken := env.signIn(t, "Bob", "bob@example.com")

	_, err := env.quiz.StartAttempt(ctx, adaID, "animal-farm", "animal-farm-1")
	require.NoError(t, err)
	for q, v := range map[string]string{"af-q1": "Old Major", "af-q2": "true", "af-q3": "Boxer"} {
		_, err := env.quiz.RecordAnswer(ctx, adaID, q, v)
		require.NoError(t, err)
	}
	_, err = env.quiz.Submit(ctx, adaID)
	require.NoError(t, err)

	status, body := env.do(t, http.MethodGet, "/leaderboard?limit=5", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	var entries []struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
		TotalPoints int    `json:"totalPoints"`
	}
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Ada", entries[0].DisplayName)
	assert.Equal(t, 30, entries[0].TotalPoints)

	status, _ = env.do(t, http.MethodGet, "/leaderboard?limit=-1", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/me/stats", adaToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"rank":1`)
	assert.Contains(t, string(body), `"averagePercentage":100`)

	status, body = env.do(t, http.MethodGet, "/me/stats", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"ranked":false`)

	status, _ = env.do(t, http.MethodPost, "/attempts/retry", adaToken, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAdminScoresRoute(t *testing.T) {
	env := newTestEnv(t)
	_, memberToken := env.signIn(t, "Ada", "ada@example.com")
	_, adminToken := env.signIn(t, "Host", "host@club.org")

	status, _ := env.do(t, http.MethodGet, "/admin/scores", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, http.MethodGet, "/admin/scores", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}
