package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/cheildo/pong-lobby/internal/apigateway"
	"github.com/cheildo/pong-lobby/internal/auth"
	"github.com/cheildo/pong-lobby/internal/events"
	"github.com/cheildo/pong-lobby/internal/matchmaking"
	"github.com/cheildo/pong-lobby/internal/metrics"
	"github.com/cheildo/pong-lobby/internal/pkg/kafka"
	"github.com/cheildo/pong-lobby/internal/pkg/redis"
	"github.com/cheildo/pong-lobby/internal/pkg/wsconn"
	"github.com/cheildo/pong-lobby/internal/relay"
)

// healthService is the name reported through the gRPC health service.
const healthService = "pong.lobby"

func main() {
	// --- Configuration Loading ---
	if err := loadConfig(); err != nil {
		slog.Error("Failed to read configuration file", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger())
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Event Sinks ---
	sinks, closeClients := buildSinks(ctx)
	defer closeClients()
	dispatcher := events.NewDispatcher(
		viper.GetInt("events.buffer"),
		time.Duration(viper.GetInt("events.delivery_timeout_ms"))*time.Millisecond,
		sinks...,
	)
	// The dispatcher outlives the actors so their last events still flush.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go dispatcher.Run(dispatchCtx)

	// --- Actors ---
	queue := matchmaking.NewService(matchmaking.NewPool(), dispatcher,
		matchmaking.WithMailboxSize(viper.GetInt("matchmaking.mailbox_size")))
	queue.Start(ctx)
	matches := relay.NewService(ctx, relayConfig(), dispatcher)

	// --- HTTP Router ---
	resolver := auth.NewResolver(authConfig())
	conns := wsconn.NewConnectionManager()
	wsCfg := websocketConfig()
	router := apigateway.NewRouter(apigateway.Handlers{
		Queue: matchmaking.NewWebsocketHandler(queue, resolver, wsCfg, conns),
		Match: relay.NewWebsocketHandler(matches, resolver, wsCfg, conns),
		Guest: auth.NewHTTPHandler(resolver).HandleGuest,
	}, corsConfig())

	httpPort := viper.GetString("http_server.port")
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Pong lobby listening", "port", httpPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Could not start server", "error", err)
			os.Exit(1)
		}
	}()

	// --- gRPC Health Server ---
	grpcServer, healthSrv := startGRPCServer(viper.GetString("grpc_server.port"))

	if port := viper.GetString("diagnostics.port"); port != "" {
		startDiagnosticsServer(port)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down pong lobby...")
	if healthSrv != nil {
		healthSrv.Shutdown()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown:", "error", err)
	}

	// Hijacked WebSocket connections are not covered by Shutdown.
	slog.Info("Closing live connections", "count", conns.Len())
	conns.CloseAll()
	queue.Stop()
	matches.Stop()
	// The queue drains its inbox before the shared context goes away.
	select {
	case <-queue.Done():
	case <-shutdownCtx.Done():
		slog.Warn("Queue actor did not drain before the deadline")
	}
	cancel()

	stopDispatch()
	select {
	case <-dispatcher.Done():
	case <-shutdownCtx.Done():
		slog.Warn("Event dispatcher did not drain before the deadline")
	}

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	slog.Info("Pong lobby stopped.")
}

// buildSinks connects the configured event sinks. The returned func closes
// clients the sinks do not own.
func buildSinks(ctx context.Context) ([]events.Sink, func()) {
	var sinks []events.Sink
	closeFn := func() {}

	if viper.GetBool("kafka.enabled") {
		producer := kafka.NewProducer(viper.GetStringSlice("kafka.brokers"), viper.GetString("kafka.events_topic"))
		sinks = append(sinks, events.NewKafkaSink(producer))
		slog.Info("Kafka event sink enabled", "topic", viper.GetString("kafka.events_topic"))
	}

	if viper.GetBool("redis.enabled") {
		rdb, err := redis.NewClient(ctx, redis.Config{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("Redis connection successful.")
		sinks = append(sinks, events.NewRedisSink(rdb, viper.GetString("redis.key_prefix"), viper.GetInt("redis.recent_matches")))
		closeFn = func() {
			if err := rdb.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}
	}
	return sinks, closeFn
}

func startGRPCServer(port string) (*grpc.Server, *health.Server) {
	if port == "" {
		return nil, nil
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		slog.Error("Failed to listen on gRPC port", "port", port, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	go func() {
		slog.Info("gRPC health server listening", "address", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server failed to serve", "error", err)
		}
	}()
	return grpcServer, healthSrv
}

func startDiagnosticsServer(port string) {
	go func() {
		slog.Info("Starting diagnostics server", "port", port)
		// http.DefaultServeMux already has the pprof handlers registered by the import.
		if err := http.ListenAndServe(fmt.Sprintf(":%s", port), nil); err != nil {
			slog.Error("Diagnostics server failed to start", "error", err)
		}
	}()
}
