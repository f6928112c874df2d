package main

import (
	"GrowthDashboard/src/api"
	"GrowthDashboard/src/config"
	"GrowthDashboard/src/datapush"
	"GrowthDashboard/src/datasource/file"
	"GrowthDashboard/src/processor"
	"GrowthDashboard/src/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal("读取 .env 失败:", err)
	}

	jsonFolder := config.GetEnv(config.EnvConfigDir, "./config")
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()
	logger.Mirror(os.Stdout)

	if err := writePidFile(cfg.PidFile); err != nil {
		logger.Warningf("写入pid文件失败: %v", err)
	} else {
		defer os.Remove(cfg.PidFile)
	}

	// 所有视角共用一条流水线
	pipeline := processor.NewPipeline(
		cfg.Source.Path,
		file.ReadOptions{Encoding: cfg.Source.Encoding, SheetName: cfg.Source.SheetName},
		&processor.Cleaner{Strict: cfg.Source.Strict, Logger: logger},
		logger,
		dcfg.GetTopN(),
	)

	notifier := datapush.NewNotifier(
		cfg.Notify.Webhook,
		cfg.Notify.RetryTimes,
		time.Duration(cfg.Notify.RetryInterval),
		time.Duration(cfg.Notify.Cooldown),
	)
	if notifier.Enabled() {
		pipeline.OnFailure(func(err error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			content := fmt.Sprintf("【配送看板】%s\n数据源: %s", err.Error(), cfg.Source.Path)
			if _, err := notifier.Notify(ctx, content); err != nil {
				logger.Errorf("推送钉钉告警失败: %v", err)
			}
		})
	}

	// 预热缓存，失败只记录，首个请求会重试
	go func() {
		if _, err := pipeline.Table(); err != nil {
			logger.Warningf("预加载数据源失败: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 数据源文件变化时清空缓存
	monitor, err := file.NewFileMonitor(cfg.Source.Path)
	if err != nil {
		logger.Warningf("无法监听数据源目录，只依赖定时检查: %v", err)
	} else {
		defer monitor.Close()
		go func() {
			err := monitor.Watch(ctx, func(path string) {
				logger.Infof("检测到数据源变化: %s", path)
				pipeline.Invalidate()
			})
			if err != nil {
				logger.Errorf("数据源监听异常退出: %v", err)
			}
		}()
	}

	// 设置定时任务
	c := cron.New()
	if err := addJobs(c, cfg, logger, pipeline); err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}
	c.Start()
	defer c.Stop()

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(pipeline, dcfg, logger, cfg.BrandImage)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.SetupRouter(handler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	go func() {
		logger.Infof("看板服务已启动: %s, 数据源: %s", cfg.Server.Addr, cfg.Source.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP服务异常退出: %v", err)
			cancel()
		}
	}()

	waitForSignals(ctx, logger, pipeline)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("关闭HTTP服务失败: %v", err)
	}
	logger.Info("看板服务已退出")
}

func addJobs(c *cron.Cron, cfg *config.Config, logger *storage.Logger, pipeline *processor.Pipeline) error {
	// 使用配置中的检查间隔而不是硬编码
	logSpec := fmt.Sprintf("@every %s", time.Duration(cfg.LogCheckInterval))
	if err := c.AddFunc(logSpec, func() {
		rotated, err := logger.CheckRotate(cfg.LogMaxSize)
		if err != nil {
			logger.Errorf("日志轮转失败: %v", err)
			return
		}
		if rotated {
			logger.Info("日志文件已轮转")
		}
	}); err != nil {
		return err
	}

	// fsnotify 之外再按修改时间兜底检查一次
	pollSpec := fmt.Sprintf("@every %s", time.Duration(cfg.Source.PollInterval))
	return c.AddFunc(pollSpec, func() {
		if pipeline.CheckSource() {
			logger.Infof("数据源修改时间变化，缓存已失效(间隔: %v)", pollSpec)
		}
	})
}

// waitForSignals SIGHUP 重新打开日志并清空缓存，SIGINT/SIGTERM 退出
func waitForSignals(ctx context.Context, logger *storage.Logger, pipeline *processor.Pipeline) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				if err := logger.Reopen(""); err != nil {
					log.Printf("Failed to reopen log: %v", err)
				}
				pipeline.Invalidate()
				logger.Info("Received SIGHUP, log reopened and cache invalidated")
			default:
				logger.Info("Received signal: " + sig.String() + ", shutting down...")
				return
			}
		}
	}
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}
