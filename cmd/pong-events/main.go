package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cheildo/pong-lobby/internal/pkg/kafka"
	"github.com/cheildo/pong-lobby/internal/tracker"
)

const healthService = "pong.events"

func main() {
	// --- Configuration ---
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.events_topic", "pong.lobby.events")
	viper.SetDefault("kafka.consumer_group_id", "pong-events")
	viper.SetDefault("tracker.pending_ttl_minutes", 10)
	viper.SetDefault("grpc_server.port", "9091")
	viper.SetDefault("diagnostics.port", "6061")

	viper.SetConfigName("pong-events")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/development")
	viper.SetEnvPrefix("PONG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("Failed to read configuration file", "error", err)
			os.Exit(1)
		}
	}

	// --- Kafka Initialization ---
	consumer := kafka.NewConsumer(
		viper.GetStringSlice("kafka.brokers"),
		viper.GetString("kafka.events_topic"),
		viper.GetString("kafka.consumer_group_id"),
	)
	listener := tracker.NewListener(consumer, viper.GetDuration("tracker.pending_ttl_minutes")*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		listener.Run(ctx)
	}()

	// --- gRPC Health Server ---
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	go startGRPCServer(grpcServer, viper.GetString("grpc_server.port"))

	http.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(listener.Stats())
	})
	startDiagnosticsServer(viper.GetString("diagnostics.port"))

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down match tracker...")
	healthSrv.Shutdown()
	cancel()
	<-done
	grpcServer.GracefulStop()
	slog.Info("Match tracker shut down gracefully.")
}

func startGRPCServer(grpcServer *grpc.Server, port string) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		slog.Error("Failed to listen on gRPC port", "port", port, "error", err)
		os.Exit(1)
	}
	slog.Info("Tracker gRPC health server listening", "address", lis.Addr().String())
	if err := grpcServer.Serve(lis); err != nil {
		slog.Error("gRPC server failed to serve", "error", err)
	}
}

func startDiagnosticsServer(port string) {
	go func() {
		slog.Info("Starting diagnostics server", "port", port)
		if err := http.ListenAndServe(fmt.Sprintf(":%s", port), nil); err != nil {
			slog.Error("Diagnostics server failed to start", "error", err)
		}
	}()
}
