package app

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Listen string `yaml:"listen"`
}

type Log struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

type Storage struct {
	Root           string `yaml:"root" validate:"required"`
	BaseURL        string `yaml:"base_url" validate:"omitempty,url"`
	RetryAttempts  int    `yaml:"retry_attempts" validate:"gte=1"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms" validate:"gte=0"`
}

// RetryBackoff 返回重试的初始退避时间。
func (s Storage) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMs) * time.Millisecond
}

// Run 是 HTTP 触发任务时的默认运行参数。
type Run struct {
	WorkdirRoot       string `yaml:"workdir_root" validate:"required"`
	SkipUpload        bool   `yaml:"skip_upload"`
	SkipValidation    bool   `yaml:"skip_validation"`
	SaveWorkdir       bool   `yaml:"save_workdir"`
	UploadConcurrency int    `yaml:"upload_concurrency" validate:"gte=1"`
}

// Janitor 定期清理过期的工作目录。
type Janitor struct {
	Cron           string `yaml:"cron" validate:"required"`
	RetentionHours int    `yaml:"retention_hours" validate:"gte=1"`
}

// Retention 返回工作目录保留时长。
func (j Janitor) Retention() time.Duration {
	return time.Duration(j.RetentionHours) * time.Hour
}

// Neo4j 为空 URI 时不记录血缘。
type Neo4j struct {
	URI                  string `yaml:"uri" validate:"omitempty,uri"`
	Username             string `yaml:"username"`
	Password             string `yaml:"password"`
	Database             string `yaml:"database"`
	MaxConnectionPool    int    `yaml:"max_connections" validate:"gte=0"`
	ConnectTimeoutSecond int    `yaml:"connect_timeout_second" validate:"gte=0"`
	BatchSize            int    `yaml:"batch_size" validate:"gte=1"`
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	Log     Log     `yaml:"log"`
	Storage Storage `yaml:"storage"`
	Run     Run     `yaml:"run"`
	Janitor Janitor `yaml:"janitor"`
	Neo4j   Neo4j   `yaml:"neo4j"`
}

// DefaultConfig 返回默认配置，未在文件中出现的字段取这里的值。
func DefaultConfig() Config {
	return Config{
		HTTP: HTTP{Listen: ":8080"},
		Log:  Log{Level: "info"},
		Storage: Storage{
			Root:           "data/storage",
			RetryAttempts:  3,
			RetryBackoffMs: 200,
		},
		Run: Run{
			WorkdirRoot:       "data/workdirs",
			UploadConcurrency: 4,
		},
		Janitor: Janitor{Cron: "@hourly", RetentionHours: 24},
		Neo4j: Neo4j{
			MaxConnectionPool:    10,
			ConnectTimeoutSecond: 5,
			BatchSize:            200,
		},
	}
}

// LoadConfig 从文件加载配置，补齐默认值后校验。
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("读取配置失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("解析配置失败: %w", err)
	}
	return Normalize(cfg)
}

// Normalize 补齐默认值并校验。
func Normalize(cfg Config) (Config, error) {
	if err := mergo.Merge(&cfg, DefaultConfig()); err != nil {
		return cfg, fmt.Errorf("合并默认配置失败: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}
