package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dish-suggester/internal/api"
	"dish-suggester/internal/core/ai/service"
	"dish-suggester/internal/core/dish"
	"dish-suggester/internal/core/session"
	"dish-suggester/internal/infrastructure/config"
	"dish-suggester/internal/pkg/common"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.ActiveModel()),
		zap.String("output_mode", cfg.AI.OutputMode),
		zap.String("session_store", cfg.Session.Store),
	)

	if err := run(cfg); err != nil {
		common.LogFatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// 初始化生成服務
	p, err := service.NewProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize ai provider: %w", err)
	}
	aiService := service.NewService(p)
	defer aiService.Close()

	requestor := dish.NewRequestor(aiService, dish.Options{
		Mode:              dish.OutputMode(cfg.AI.OutputMode),
		CuisineDescriptor: cfg.AI.CuisineDescriptor,
	})

	// 初始化 session 儲存
	store, err := session.NewStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	manager := session.NewManager(store, requestor, time.Now)
	defer manager.Close()

	router, err := api.SetupRouter(cfg, api.Dependencies{
		Sessions:  manager,
		Suggester: requestor,
		Store:     store,
		Model:     aiService.Model(),
		Mode:      requestor.Mode(),
		Now:       time.Now,
	})
	if err != nil {
		return fmt.Errorf("failed to setup router: %w", err)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
	}

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	common.LogInfo("Server exited")
	return nil
}
