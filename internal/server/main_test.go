package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/storage"
	"quill/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *miniredis.Miniredis
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewTestDB(t)
	root := t.TempDir()
	cfg := &config.Config{
		Port:                 "0",
		JWTSecret:            testSecret,
		AllowedOrigins:       "*",
		FeatureFlags:         flags,
		PostsPerPage:         10,
		IndexCacheSeconds:    20,
		MediaBackend:         config.MediaBackendDisk,
		MediaRoot:            root,
		MediaURL:             "/media/",
		ImageMaxUploadSizeMB: 1,
	}

	s, err := NewServerWithDeps(cfg, db, rdb, storage.NewDiskBackend(root, cfg.MediaURL))
	require.NoError(t, err)

	return &testEnv{server: s, app: s.NewApp(), db: db, redis: mr}
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"exp":      now.Add(time.Hour).Unix(),
		"iat":      now.Unix(),
		"jti":      uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return e.do(t, req, token)
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

type viewDoc struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
}

func decodeView(t *testing.T, resp *http.Response) viewDoc {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var v viewDoc
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func objectList(t *testing.T, v viewDoc) []any {
	t.Helper()
	page, ok := v.Context["page_obj"].(map[string]any)
	require.True(t, ok, "page_obj missing from %v", v.Context)
	items, _ := page["object_list"].([]any)
	return items
}
