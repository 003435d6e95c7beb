package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct{ n int }

func (c *countingObserver) WorkdirRemoved() { c.n++ }

func TestJanitorSweep(t *testing.T) {
	fsys := afero.NewMemMapFs()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for name, age := range map[string]time.Duration{
		"stactask-old":   48 * time.Hour,
		"stactask-fresh": time.Hour,
		"keep-me":        72 * time.Hour,
	} {
		dir := "/work/" + name
		require.NoError(t, fsys.MkdirAll(dir, 0o755))
		require.NoError(t, afero.WriteFile(fsys, dir+"/x", []byte("x"), 0o644))
		require.NoError(t, fsys.Chtimes(dir, now.Add(-age), now.Add(-age)))
	}

	obs := &countingObserver{}
	j := NewJanitor(fsys, "/work", "stactask-", 24*time.Hour, obs, nil)
	j.now = func() time.Time { return now }

	removed, err := j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/stactask-old"}, removed)
	assert.Equal(t, 1, obs.n)

	for dir, want := range map[string]bool{
		"/work/stactask-old":   false,
		"/work/stactask-fresh": true,
		"/work/keep-me":        true,
	} {
		ok, err := afero.DirExists(fsys, dir)
		require.NoError(t, err)
		assert.Equal(t, want, ok, dir)
	}
}

func TestJanitorKeepsSavedWorkdirs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, name := range []string{"stactask-saved-123", "stactask-456"} {
		dir := "/work/" + name
		require.NoError(t, fsys.MkdirAll(dir, 0o755))
		require.NoError(t, fsys.Chtimes(dir, now.Add(-72*time.Hour), now.Add(-72*time.Hour)))
	}

	j := NewJanitor(fsys, "/work", "stactask-", 24*time.Hour, nil, nil).Keep("stactask-saved-")
	j.now = func() time.Time { return now }

	removed, err := j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/stactask-456"}, removed)

	ok, err := afero.DirExists(fsys, "/work/stactask-saved-123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJanitorMissingRoot(t *testing.T) {
	j := NewJanitor(afero.NewMemMapFs(), "/nope", "stactask-", time.Hour, nil, nil)
	assert.NoError(t, j.Run(context.Background()))
}

func TestSchedulerRunOnce(t *testing.T) {
	calls := 0
	s := NewScheduler("test", "", func(context.Context) error {
		calls++
		return errors.New("fails are logged")
	}, nil)
	s.RunOnce()
	s.RunOnce()
	assert.Equal(t, 2, calls)
	assert.Equal(t, defaultCronSpec, s.cronExpr)
}

func TestSchedulerSkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s := NewScheduler("test", "@every 1h", func(context.Context) error {
		calls++
		return nil
	}, nil)
	stop := s.Start(ctx)
	cancel()
	s.RunOnce()
	stop()
	assert.Zero(t, calls)
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s := NewScheduler("test", "not a cron", func(context.Context) error { return nil }, nil)
	stop := s.Start(context.Background())
	stop()
	assert.Nil(t, s.cron)
}
