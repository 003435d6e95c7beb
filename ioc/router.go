package ioc

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"stactask/internal/app"
	"stactask/internal/router"
)

// InitTaskHandler 构建任务 HTTP 处理器。
func InitTaskHandler(svc *app.Service, logger *zap.Logger) *router.TaskHandler {
	return router.NewTaskHandler(svc, logger.Named("http"))
}

// InitGinEngine 构建 gin 引擎。
func InitGinEngine(handler *router.TaskHandler, reg *prometheus.Registry) *gin.Engine {
	return router.NewEngine(handler, reg)
}
