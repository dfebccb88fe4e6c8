package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/glowup/internal/health"
	"github.com/vladislavdragonenkov/glowup/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает HTTP API, сервер метрик, gRPC health и фоновые воркеры
// и блокируется до отмены ctx или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	workersCtx, stopWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	startWorkers(workersCtx, &workers, deps)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storeChecker)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	grpcServer, healthServer := newGRPCServer(logger)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		return fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}

	apiSrv := &http.Server{
		Handler:           deps.api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC health сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("HTTP API слушает %s", httpLis.Addr())
		if err := apiSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			runErr = err
		}
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownHTTP(apiSrv, logger)
	stopGRPC(grpcServer, logger)
	stopWorkers()
	workers.Wait()
	shutdownHTTP(metricsSrv, logger)

	return runErr
}

func startWorkers(ctx context.Context, wg *sync.WaitGroup, deps *runtimeDependencies) {
	if deps.holdSweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deps.holdSweeper.Run(ctx)
		}()
	}
	if deps.cleanupWorker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deps.cleanupWorker.Run(ctx)
		}()
	}
}

// newGRPCServer поднимает gRPC сервер только с health и reflection для проб оркестратора.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)

	return grpcServer, healthServer
}

func stopGRPC(grpcServer *grpc.Server, logger *log.Entry) {
	stoppedCh := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		grpcServer.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/version", version.Handler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
