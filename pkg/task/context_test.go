package task

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stactask/pkg/item"
	"stactask/pkg/storage"
)

func TestContextJoin(t *testing.T) {
	tc := &Context{Workdir: "/work/run-1"}

	p, err := tc.Join("LC08_1", "B01.tif")
	require.NoError(t, err)
	assert.Equal(t, "/work/run-1/LC08_1/B01.tif", p)

	for _, elem := range [][]string{
		{"../other/x"},
		{"LC08_1", "../../x"},
		{"/etc/passwd", "../../../.."},
		{"."},
	} {
		_, err := tc.Join(elem...)
		var invalid *InvalidInputError
		assert.ErrorAs(t, err, &invalid, elem)
	}
}

func TestContextDownloadAssets(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/store/bucket/a/B01.tif", []byte("b01"), 0o644))
	tc := &Context{
		TaskName: "fetch",
		Workdir:  "/work/run-1",
		FS:       fsys,
		Storage:  storage.NewFSClient(fsys, storage.Options{Root: "/store"}, nil),
	}

	items := []item.Item{item.New("LC08_1")}
	items[0].Assets["B01"] = item.Asset{Href: "s3://bucket/a/B01.tif"}
	require.NoError(t, tc.DownloadAssets(context.Background(), items))
	assert.Equal(t, "/work/run-1/LC08_1/B01.tif", items[0].Assets["B01"].Href)

	data, err := afero.ReadFile(fsys, "/work/run-1/LC08_1/B01.tif")
	require.NoError(t, err)
	assert.Equal(t, "b01", string(data))

	escaping := []item.Item{item.New("../../etc")}
	escaping[0].Assets["B01"] = item.Asset{Href: "s3://bucket/a/B01.tif"}
	var invalid *InvalidInputError
	assert.ErrorAs(t, tc.DownloadAssets(context.Background(), escaping), &invalid)

	tc.Storage = nil
	assert.Error(t, tc.DownloadAssets(context.Background(), items))
}
