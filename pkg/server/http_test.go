package server

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stactask/internal/app"
	"stactask/internal/job"
	"stactask/pkg/task"
)

func TestRunStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := app.DefaultConfig()
	cfg.HTTP.Listen = "127.0.0.1:0"

	reg, err := task.NewRegistry()
	require.NoError(t, err)
	svc, err := app.NewService(cfg, task.NewRunner(reg, task.WithFs(afero.NewMemMapFs())), nil, nil, nil)
	require.NoError(t, err)

	swept := make(chan struct{}, 1)
	janitor := job.NewScheduler("test", "@every 1h", func(context.Context) error {
		swept <- struct{}{}
		return nil
	}, nil)

	s := NewHTTPServer(gin.New(), nil, cfg, svc, janitor)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Empty(t, swept)
}
