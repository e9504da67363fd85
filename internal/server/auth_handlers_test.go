package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"quill/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signup(t *testing.T, env *testEnv, username string) string {
	t.Helper()
	body := `{"username":"` + username + `","email":"` + username + `@example.com","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := env.do(t, req, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestSignupRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t, "")
	signup(t, env, "alice")

	body := `{"username":"alice","email":"other@example.com","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := env.do(t, req, "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginFormRedirectsToNext(t *testing.T) {
	env := newTestEnv(t, "")
	signup(t, env, "alice")

	resp := env.postForm(t, "/auth/login/", url.Values{
		"username": {"alice"},
		"password": {"correct-horse"},
		"next":     {"/follow/"},
	}, "")

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/follow/", resp.Header.Get("Location"))
	assert.Contains(t, resp.Header.Get("Set-Cookie"), middleware.TokenCookie+"=")
}

func TestLoginIgnoresForeignNext(t *testing.T) {
	env := newTestEnv(t, "")
	signup(t, env, "alice")

	for _, next := range []string{
		"//evil.example.com/",
		"https://evil.example.com/",
		"/\\evil.example.com",
		"/\t/evil.example.com",
		"/\n/evil.example.com",
		"/\r\n/evil.example.com",
	} {
		resp := env.postForm(t, "/auth/login/", url.Values{
			"username": {"alice"},
			"password": {"correct-horse"},
			"next":     {next},
		}, "")

		assert.Equal(t, http.StatusFound, resp.StatusCode, "next=%q", next)
		assert.Equal(t, "/", resp.Header.Get("Location"), "next=%q", next)
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"/follow/":               "/follow/",
		"/posts/3/?page=2":       "/posts/3/?page=2",
		"":                       "",
		"follow/":                "",
		"//evil.example.com":     "",
		"/\\evil.example.com":    "",
		"/\t/evil.example.com":   "",
		"/\n/evil.example.com":   "",
		"/\x7f/evil.example.com": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), "safeNext(%q)", in)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t, "")
	signup(t, env, "alice")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"wrong-password"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := env.do(t, req, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	form := env.postForm(t, "/auth/login/", url.Values{"username": {"alice"}, "password": {"nope"}}, "")
	require.Equal(t, http.StatusUnauthorized, form.StatusCode)
	assert.Equal(t, tplLogin, decodeView(t, form).Template)
}

func TestLoginPageCarriesNext(t *testing.T) {
	env := newTestEnv(t, "")

	v := decodeView(t, env.get(t, "/auth/login/?next=%2Fcreate%2F", ""))

	assert.Equal(t, tplLogin, v.Template)
	assert.Equal(t, "/create/", v.Context["next"])
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, "")
	token := signup(t, env, "alice")

	before := env.get(t, "/create/", token)
	require.Equal(t, http.StatusOK, before.StatusCode)

	resp := env.postForm(t, "/auth/logout", nil, token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	after := env.get(t, "/create/", token)
	assert.Equal(t, http.StatusFound, after.StatusCode)
	assert.Contains(t, after.Header.Get("Location"), "/auth/login/")
}
