package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskBackendSaveDelete(t *testing.T) {
	root := t.TempDir()
	backend := NewDiskBackend(root, "/media")
	ctx := context.Background()

	key := NewPostImageKey(".PNG")
	require.True(t, strings.HasPrefix(key, "posts/"))
	require.True(t, strings.HasSuffix(key, ".png"))

	require.NoError(t, backend.Save(ctx, key, strings.NewReader("img"), 3, "image/png"))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
	assert.Equal(t, "/media/"+key, backend.URL(key))

	require.NoError(t, backend.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine.
	assert.NoError(t, backend.Delete(ctx, key))
}

func TestDiskBackendRejectsTraversal(t *testing.T) {
	backend := NewDiskBackend(t.TempDir(), "/media/")
	ctx := context.Background()

	for _, key := range []string{"", "../etc/passwd", "/abs/file.png", "posts/../../x.png"} {
		assert.Error(t, backend.Save(ctx, key, strings.NewReader("x"), 1, ""), key)
	}
}

func TestNewPostImageKeyIsUnique(t *testing.T) {
	assert.NotEqual(t, NewPostImageKey(".gif"), NewPostImageKey(".gif"))
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(&config.Config{MediaBackend: config.MediaBackendDisk, MediaRoot: t.TempDir(), MediaURL: "/media/"})
	require.NoError(t, err)
	assert.IsType(t, &DiskBackend{}, b)

	s3b, err := NewBackend(&config.Config{
		MediaBackend: config.MediaBackendS3,
		S3Bucket:     "quill-media",
		S3Region:     "eu-west-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://quill-media.s3.eu-west-1.amazonaws.com/posts/a.png", s3b.URL("posts/a.png"))

	_, err = NewBackend(&config.Config{MediaBackend: config.MediaBackendS3})
	assert.Error(t, err)

	_, err = NewBackend(&config.Config{MediaBackend: "ftp"})
	assert.Error(t, err)
}
