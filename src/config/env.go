package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// 可通过环境变量(或 .env 文件)覆盖的配置项
const (
	EnvConfigDir = "CONFIG_DIR"
	EnvDataFile  = "DATA_FILE"
	EnvPort      = "PORT"
	EnvWebhook   = "NOTIFY_WEBHOOK"
)

// LoadEnv 读取当前目录下的 .env 文件，文件不存在不算错误
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// GetEnv 读取环境变量，为空时返回 fallback
func GetEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func applyEnv(cfg *Config) {
	cfg.Source.Path = GetEnv(EnvDataFile, cfg.Source.Path)
	cfg.Notify.Webhook = GetEnv(EnvWebhook, cfg.Notify.Webhook)
	if port := GetEnv(EnvPort, ""); port != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
}
