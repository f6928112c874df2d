package main

import (
	"GrowthDashboard/src/config"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 通知正在运行的看板重新打开日志并重新加载数据源
func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal("读取 .env 失败:", err)
	}

	jsonFolder := config.GetEnv(config.EnvConfigDir, "./config")
	cfg, _, err := config.LoadConfig(jsonFolder, "config.json", "dataconfig.json")
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	data, err := os.ReadFile(cfg.PidFile)
	if err != nil {
		log.Fatal("读取pid文件失败:", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Fatal("pid文件内容无效:", err)
	}

	// 向看板进程发送 SIGHUP
	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("已向进程 %d 发送 SIGHUP", pid)
}
