package router

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stactask/internal/app"
	"stactask/pkg/process"
	"stactask/pkg/task"
)

// TaskHandler 负责任务相关的 HTTP 请求。
type TaskHandler struct {
	svc    *app.Service
	logger *zap.Logger
}

// NewTaskHandler 构建一个新的 TaskHandler。
func NewTaskHandler(svc *app.Service, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{svc: svc, logger: logger}
}

// RegisterRoutes 将任务路由注册到给定的路由组。
func (h *TaskHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tasks", h.handleList)
	rg.POST("/tasks/:name/run", h.handleRun)
	rg.POST("/process/resolve", h.handleResolve)
	rg.GET("/items/:collection/:id/ancestors", h.handleAncestors)
}

func (h *TaskHandler) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.svc.Tasks()})
}

// handleRun 请求体为 payload，query 参数 upload、validate、save_workdir 覆盖默认配置。
func (h *TaskHandler) handleRun(c *gin.Context) {
	overrides, err := parseOverrides(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	in, err := h.svc.LoadPayload(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Run(c.Request.Context(), c.Param("name"), in, overrides)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *TaskHandler) handleResolve(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	in, err := h.svc.LoadPayload(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Resolve(in, c.Query("task"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TaskHandler) handleAncestors(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")
	keys, err := h.svc.Ancestors(c.Request.Context(), collection, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": collection, "id": id, "ancestors": keys})
}

func (h *TaskHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var invalid *task.InvalidInputError
	var failed *task.FailedValidationError
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrLineageDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, process.ErrConfiguration), errors.As(err, &invalid), errors.As(err, &failed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseOverrides(c *gin.Context) (app.RunOverrides, error) {
	var o app.RunOverrides
	for _, q := range []struct {
		key string
		dst **bool
	}{
		{"upload", &o.Upload},
		{"validate", &o.Validate},
		{"save_workdir", &o.SaveWorkdir},
	} {
		key, dst := q.key, q.dst
		raw, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return o, errors.New("query " + key + " must be a boolean")
		}
		*dst = &v
	}
	return o, nil
}
