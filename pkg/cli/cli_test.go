package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stactask/pkg/item"
	"stactask/pkg/payload"
	"stactask/pkg/storage"
	"stactask/pkg/task"
)

type touchTask struct{ validated bool }

func (t *touchTask) Name() string    { return "touch" }
func (t *touchTask) Version() string { return "0.0.1" }

func (t *touchTask) Validate(context.Context, *task.Context, []item.Item) error {
	t.validated = true
	return nil
}

func (t *touchTask) Process(_ context.Context, tc *task.Context, items []item.Item) ([]item.Item, error) {
	for i := range items {
		path := tc.Path(items[i].ID + ".txt")
		if err := afero.WriteFile(tc.FS, path, []byte("x"), 0o644); err != nil {
			return nil, err
		}
		items[i].Assets["data"] = item.Asset{Href: path}
	}
	return items, nil
}

const input = `{
  "type": "FeatureCollection",
  "features": [{"type": "Feature", "id": "LC08_1", "geometry": null, "properties": {}, "links": [], "assets": {}}],
  "process": [{
    "upload_options": {"path_template": "s3://bucket/${collection}/${id}", "s3_urls": true},
    "collection_matchers": [{"type": "catch_all", "collection_name": "landsat"}]
  }]
}`

func execute(t *testing.T, tk *touchTask, fsys afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()
	reg, err := task.NewRegistry(tk)
	require.NoError(t, err)
	cmd := NewRootCommand(reg, WithFs(fsys))
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--logging", "error"))
	err = cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunFromStdinUploads(t *testing.T) {
	fsys := afero.NewMemMapFs()
	tk := &touchTask{}
	stdout, err := execute(t, tk, fsys, input, "run")
	require.NoError(t, err)
	assert.True(t, tk.validated)

	out, err := payload.Parse([]byte(stdout))
	require.NoError(t, err)
	require.Len(t, out.Features, 1)
	it := out.Features[0]
	assert.Equal(t, "landsat", it.Collection)
	assert.Equal(t, "s3://bucket/landsat/LC08_1/LC08_1.txt", it.Assets["data"].Href)

	exists, err := afero.Exists(fsys, "storage/bucket/landsat/LC08_1/LC08_1.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunLocal(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "in.json", []byte(input), 0o644))
	tk := &touchTask{}

	stdout, err := execute(t, tk, fsys, "", "run", "in.json", "--local", "--no-validate")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.False(t, tk.validated)

	data, err := afero.ReadFile(fsys, LocalOutput)
	require.NoError(t, err)
	out, err := payload.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, LocalWorkdir+"/LC08_1.txt", out.Features[0].Assets["data"].Href)

	exists, err := afero.Exists(fsys, LocalWorkdir+"/LC08_1.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunIndirectLocalPayload(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/payloads/in.json", []byte(input), 0o644))
	indirect := `{"type": "FeatureCollection", "features": [], "href": "/payloads/in.json"}`

	_, err := execute(t, &touchTask{}, fsys, indirect, "run", "--no-upload")
	var invalid *task.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, storage.ErrOutsideRoot)

	stdout, err := execute(t, &touchTask{}, fsys, indirect, "run", "--no-upload", "--allow-local-paths")
	require.NoError(t, err)
	out, err := payload.Parse([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, "LC08_1", out.Features[0].ID)
}

func TestRunFlags(t *testing.T) {
	cases := []struct {
		name     string
		flags    runFlags
		upload   bool
		validate bool
	}{
		{"defaults", runFlags{upload: true, validate: true}, true, true},
		{"no-upload", runFlags{upload: true, noUpload: true, validate: true}, false, true},
		{"skip-upload", runFlags{upload: true, skipUpload: true, validate: true}, false, true},
		{"skip-validation", runFlags{upload: true, validate: true, skipValidation: true}, true, false},
		{"local", runFlags{upload: true, validate: true, local: true}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, _ := tc.flags.options()
			assert.Equal(t, tc.upload, opts.Upload)
			assert.Equal(t, tc.validate, opts.Validate)
		})
	}

	opts, output := runFlags{local: true, workdir: "w", output: "o.json"}.options()
	assert.Equal(t, "w", opts.Workdir)
	assert.Equal(t, "o.json", output)
	assert.True(t, opts.SaveWorkdir)
}

func TestRunErrors(t *testing.T) {
	_, err := execute(t, &touchTask{}, afero.NewMemMapFs(), input, "run", "--task", "missing", "--no-upload")
	assert.ErrorIs(t, err, task.ErrTaskNotFound)

	_, err = execute(t, &touchTask{}, afero.NewMemMapFs(), "{", "run")
	var invalid *task.InvalidInputError
	assert.ErrorAs(t, err, &invalid)

	_, err = execute(t, &touchTask{}, afero.NewMemMapFs(), "", "run", "nope.json")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	stdout, err := execute(t, &touchTask{}, afero.NewMemMapFs(), input, "resolve", "-t", "touch")
	require.NoError(t, err)

	var plan task.Plan
	require.NoError(t, json.Unmarshal([]byte(stdout), &plan))
	assert.Equal(t, "touch", plan.Task)
	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "landsat", plan.Assignments[0].Collection)
}

func TestTasks(t *testing.T) {
	stdout, err := execute(t, &touchTask{}, afero.NewMemMapFs(), "", "tasks")
	require.NoError(t, err)
	assert.Contains(t, stdout, "touch")
	assert.Contains(t, stdout, "0.0.1")
}
