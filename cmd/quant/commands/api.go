package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantgem/backend/internal/api"
	"github.com/wonny/quantgem/backend/internal/api/handlers"
	"github.com/wonny/quantgem/backend/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 수익률 랭킹/시장 통계/히스토리/히트맵 조회 제공
- 수익률 재계산 트리거 제공

Endpoints:
  GET  /health                          - Health check
  GET  /api/returns/rankings            - 수익률 랭킹
  GET  /api/returns/statistics          - 시장 통계 스냅샷
  GET  /api/returns/heatmap             - 히트맵
  GET  /api/returns/{symbol}/history    - 종목 수익률 히스토리
  GET  /api/returns/debug/return        - 저장된 수익률 확인
  POST /api/returns/calculate           - 수익률 재계산 트리거

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "장 마감 후 재계산 스케줄러 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== QuantGem Returns API Server ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":    a.cfg.Port,
		"env":     a.cfg.Env,
		"workers": a.cfg.Returns.Workers,
		"redis":   a.redis.Enabled(),
	}).Info("Initializing API server")

	// 백그라운드 재계산은 서버 종료 시 취소
	baseCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// 1. Handler
	returnsHandler := handlers.NewReturnsHandler(baseCtx, a.query, a.runner, a.log)

	// 2. Router
	router := api.NewRouter(returnsHandler, api.RouterOptions{
		Health:    a.db,
		RateLimit: a.cfg.API.RateLimit,
		RateBurst: a.cfg.API.RateBurst,
	}, a.log)

	// 3. Optional scheduler
	var sched *scheduler.Scheduler
	if withScheduler {
		sched, err = initScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
	}

	// 4. Server
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or startup failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}
	cancelBackground()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
