package ioc

import (
	"os"

	"stactask/internal/app"
)

const defaultConfigPath = "configs/config.yaml"

// InitConfig 读取应用配置，STACTASK_CONFIG 可覆盖默认路径。
func InitConfig() (app.Config, error) {
	path := os.Getenv("STACTASK_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	return app.LoadConfig(path)
}
