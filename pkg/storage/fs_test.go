package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	fsys := afero.NewMemMapFs()
	c := NewFSClient(fsys, Options{Root: "/data"}, nil)
	ctx := context.Background()

	url, err := c.PutBytes(ctx, "s3://bucket/a/b.tif", []byte("tif"), map[string]string{"ContentType": "image/tiff"})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/a/b.tif", url)

	ok, err := afero.Exists(fsys, "/data/bucket/a/b.tif")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := c.GetBytes(ctx, "s3://bucket/a/b.tif")
	require.NoError(t, err)
	assert.Equal(t, "tif", string(data))

	headers, err := c.Headers("s3://bucket/a/b.tif")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ContentType": "image/tiff"}, headers)
}

func TestPutJSON(t *testing.T) {
	c := NewFSClient(afero.NewMemMapFs(), Options{Root: "/data"}, nil)
	ctx := context.Background()

	_, err := c.PutJSON(ctx, "out/payload.json", map[string]any{"href": "a&b"})
	require.NoError(t, err)

	data, err := c.GetBytes(ctx, "out/payload.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"href": "a&b"}`, string(data))
	assert.Contains(t, string(data), "a&b")
}

func TestGetMissing(t *testing.T) {
	c := NewFSClient(afero.NewMemMapFs(), Options{Root: "/data", RetryAttempts: 3}, nil)
	_, err := c.GetBytes(context.Background(), "s3://bucket/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalPath(t *testing.T) {
	c := NewFSClient(afero.NewMemMapFs(), Options{Root: "/data"}, nil)

	cases := map[string]string{
		"s3://bucket/key/x.json":  "/data/bucket/key/x.json",
		"gs://bucket/a/../x.json": "/data/bucket/x.json",
		"rel/x.json":              "/data/rel/x.json",
	}
	for in, want := range cases {
		got, err := c.localPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := c.localPath("ftp://host/x")
	assert.Error(t, err)
	_, err = c.localPath("")
	assert.Error(t, err)
}

func TestLocalPathRejectsEscapes(t *testing.T) {
	c := NewFSClient(afero.NewMemMapFs(), Options{Root: "/data"}, nil)

	for _, in := range []string{
		"../etc/passwd",
		"s3://bucket/../../etc/passwd",
		"s3://../etc/passwd",
		"gs://bucket/a/../../../x",
		"/etc/passwd",
		"file:///etc/passwd",
	} {
		_, err := c.localPath(in)
		assert.ErrorIs(t, err, ErrOutsideRoot, in)
	}
}

func TestLocalPathAllowLocal(t *testing.T) {
	c := NewFSClient(afero.NewMemMapFs(), Options{Root: "/data", AllowLocalPaths: true}, nil)

	cases := map[string]string{
		"file:///tmp/x.json": "/tmp/x.json",
		"/abs/x.json":        "/abs/x.json",
	}
	for in, want := range cases {
		got, err := c.localPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	// 相对路径与对象地址仍然限制在 Root 之内
	_, err := c.localPath("s3://bucket/../../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestPutBytesOutsideRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	c := NewFSClient(fsys, Options{Root: "/data"}, nil)

	_, err := c.PutBytes(context.Background(), "s3://bucket/../../outside.txt", []byte("x"), nil)
	require.ErrorIs(t, err, ErrOutsideRoot)
	ok, err := afero.Exists(fsys, "/outside.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.GetBytes(context.Background(), "/data/bucket/a.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestHTTPURL(t *testing.T) {
	c := NewFSClient(afero.NewMemMapFs(), Options{}, nil)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/a/b.tif", c.HTTPURL("s3://bucket/a/b.tif"))
	assert.Equal(t, "/local/file", c.HTTPURL("/local/file"))
	assert.Equal(t, "https://bucket.s3.amazonaws.com/x.tif", c.HTTPURL("s3://bucket/a/../../x.tif"))

	c = NewFSClient(afero.NewMemMapFs(), Options{BaseURL: "http://cdn.example.com/"}, nil)
	assert.Equal(t, "http://cdn.example.com/bucket/a/b.tif", c.HTTPURL("s3://bucket/a/b.tif"))
}
