package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() { SetClient(nil) })

	c := InitRedis(mr.Addr())
	require.NotNil(t, c)
	assert.Same(t, c, GetClient())

	c = InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, c)
	assert.Same(t, c, GetClient())
}

func TestInitRedis_Unavailable(t *testing.T) {
	t.Cleanup(func() { SetClient(nil) })

	assert.Nil(t, InitRedis("redis://%zz"))
	assert.Nil(t, GetClient())

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, InitRedis(addr))
	assert.Nil(t, GetClient())
}

func TestInvalidateGroup(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set(GroupKey("cats"), `{"slug":"cats"}`))
	require.NoError(t, mr.Set(GroupKey("dogs"), `{"slug":"dogs"}`))

	InvalidateGroup(context.Background(), "cats")

	assert.False(t, mr.Exists("group:cats"))
	assert.True(t, mr.Exists("group:dogs"))
}
