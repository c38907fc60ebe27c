package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "plantops-service/docs"

	"plantops-service/api"
	"plantops-service/logger"
	"plantops-service/service"
	"plantops-service/service/config"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title 工厂运行合规与排名分析服务 API
// @version 1.0
// @description 提供参数合规计算、QAF、统计分析、异常检测、趋势预测、相关性与操作员排名
// @BasePath /
func main() {
	configPath := flag.String("config", "", "配置文件路径，默认读取 CONFIG_FILE 或 config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := service.Initialize(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("服务初始化失败: %v", err)
	}
	defer app.Shutdown()

	deps := api.Dependencies{
		Config:    cfg,
		Dashboard: app.Dashboard,
		Metrics:   app.Metrics,
	}
	if app.Limiter != nil {
		deps.Limiter = app.Limiter
	}

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if cfg.Server.BaseContext != "" {
		mux.Route(cfg.Server.BaseContext, func(r chi.Router) {
			api.InitRoute(r, deps)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux, deps)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+cfg.Server.Port, mux)
	go func() {
		<-ctx.Done()
		slog.Info("收到退出信号，正在停止HTTP服务")
		if err := s.GracefulStop(); err != nil {
			slog.Error("停止HTTP服务失败", "error", err)
		}
	}()

	slog.Info("HTTP服务启动", "port", cfg.Server.Port, "base_context", cfg.Server.BaseContext, "data_source", cfg.DataSource.Kind)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		slog.Error("HTTP服务异常退出", "error", err)
	}
}
