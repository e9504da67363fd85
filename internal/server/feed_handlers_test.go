package server

import (
	"net/http"
	"net/url"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexPaginates(t *testing.T) {
	env := newTestEnv(t, "")
	alice := testutil.CreateUser(t, env.db, "alice")
	for i := 0; i < 13; i++ {
		testutil.CreatePost(t, env.db, alice, nil, "post")
	}

	first := decodeView(t, env.get(t, "/", ""))
	assert.Equal(t, tplIndex, first.Template)
	assert.Len(t, objectList(t, first), 10)

	second := decodeView(t, env.get(t, "/?page=2", ""))
	assert.Len(t, objectList(t, second), 3)

	clamped := decodeView(t, env.get(t, "/?page=99", ""))
	assert.Len(t, objectList(t, clamped), 3)
}

func TestGroupPosts(t *testing.T) {
	env := newTestEnv(t, "")
	alice := testutil.CreateUser(t, env.db, "alice")
	cats := testutil.CreateGroup(t, env.db, "cats")
	dogs := testutil.CreateGroup(t, env.db, "dogs")
	testutil.CreatePost(t, env.db, alice, cats, "meow")
	testutil.CreatePost(t, env.db, alice, dogs, "woof")

	resp := env.get(t, "/group/cats/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeView(t, resp)
	assert.Equal(t, tplGroupList, v.Template)
	assert.Equal(t, true, v.Context["is_group_page"])
	assert.Equal(t, "cats", v.Context["group"].(map[string]any)["slug"])
	items := objectList(t, v)
	require.Len(t, items, 1)
	assert.Equal(t, "meow", items[0].(map[string]any)["text"])

	missing := env.get(t, "/group/birds/", "")
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t, "")
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	testutil.CreatePost(t, env.db, alice, nil, "by alice")
	testutil.CreatePost(t, env.db, bob, nil, "by bob")
	testutil.Follow(t, env.db, bob, alice)

	anon := decodeView(t, env.get(t, "/profile/alice/", ""))
	assert.Equal(t, tplProfile, anon.Template)
	assert.Equal(t, false, anon.Context["following"])
	assert.Equal(t, true, anon.Context["no_author"])
	assert.Len(t, objectList(t, anon), 1)

	follower := decodeView(t, env.get(t, "/profile/alice/", tokenFor(t, bob)))
	assert.Equal(t, true, follower.Context["following"])

	missing := env.get(t, "/profile/nobody/", "")
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestFollowIndex(t *testing.T) {
	env := newTestEnv(t, "")
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	carol := testutil.CreateUser(t, env.db, "carol")
	testutil.CreatePost(t, env.db, alice, nil, "followed")
	testutil.CreatePost(t, env.db, carol, nil, "not followed")
	testutil.Follow(t, env.db, bob, alice)

	resp := env.get(t, "/follow/", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	v := decodeView(t, env.get(t, "/follow/", tokenFor(t, bob)))
	assert.Equal(t, tplFollow, v.Template)
	items := objectList(t, v)
	require.Len(t, items, 1)
	assert.Equal(t, "followed", items[0].(map[string]any)["text"])

	empty := decodeView(t, env.get(t, "/follow/", tokenFor(t, carol)))
	assert.Empty(t, objectList(t, empty))
}

func TestIndexPageCache(t *testing.T) {
	env := newTestEnv(t, "page_cache=on")
	alice := testutil.CreateUser(t, env.db, "alice")
	testutil.CreatePost(t, env.db, alice, nil, "cached")

	first := env.get(t, "/", "")
	assert.Equal(t, "MISS", first.Header.Get("X-Cache"))
	second := env.get(t, "/", "")
	assert.Equal(t, "HIT", second.Header.Get("X-Cache"))

	// Writes done behind the service's back are not visible until expiry.
	testutil.CreatePost(t, env.db, alice, nil, "sneaky")
	stale := decodeView(t, env.get(t, "/", ""))
	assert.Len(t, objectList(t, stale), 1)

	created := env.postForm(t, "/create/", url.Values{"text": {"fresh"}}, tokenFor(t, alice))
	require.Equal(t, http.StatusFound, created.StatusCode)

	after := env.get(t, "/", "")
	assert.Equal(t, "MISS", after.Header.Get("X-Cache"))
	assert.Len(t, objectList(t, decodeView(t, after)), 3)
	assert.Equal(t, int64(3), env.count(t, &models.Post{}))
}

func TestIndexWithoutPageCacheFlag(t *testing.T) {
	env := newTestEnv(t, "page_cache=off")

	resp := env.get(t, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Cache"))
}
