package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cheildo/pong-lobby/internal/apigateway"
	"github.com/cheildo/pong-lobby/internal/auth"
	"github.com/cheildo/pong-lobby/internal/pkg/wsconn"
	"github.com/cheildo/pong-lobby/internal/relay"
)

func setDefaults() {
	viper.SetDefault("http_server.port", "8787")
	viper.SetDefault("grpc_server.port", "9090")
	viper.SetDefault("diagnostics.port", "")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.token_duration_minutes", 24*60)
	viper.SetDefault("auth.require_token", false)

	cors := apigateway.DefaultCORSConfig()
	viper.SetDefault("cors.allowed_origins", cors.AllowedOrigins)
	viper.SetDefault("cors.allowed_methods", cors.AllowedMethods)
	viper.SetDefault("cors.allowed_headers", cors.AllowedHeaders)

	ws := wsconn.DefaultConfig()
	viper.SetDefault("websocket.pong_wait_seconds", int(ws.PongWait/time.Second))
	viper.SetDefault("websocket.write_wait_seconds", int(ws.WriteWait/time.Second))
	viper.SetDefault("websocket.send_buffer", ws.SendBuffer)
	viper.SetDefault("websocket.read_limit_bytes", ws.ReadLimit)

	viper.SetDefault("matchmaking.mailbox_size", 256)
	viper.SetDefault("relay.mailbox_size", 64)
	viper.SetDefault("relay.score_perspective", string(relay.PerspectiveSender))

	viper.SetDefault("events.buffer", 1024)
	viper.SetDefault("events.delivery_timeout_ms", 2000)

	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.events_topic", "pong.lobby.events")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.key_prefix", "pong")
	viper.SetDefault("redis.recent_matches", 100)
}

// loadConfig reads configs/development/pong-lobby.yaml if present. Every key
// can be overridden from the environment, e.g. PONG_HTTP_SERVER_PORT.
func loadConfig() error {
	setDefaults()
	viper.SetConfigName("pong-lobby")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/development")
	viper.SetEnvPrefix("PONG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		slog.Warn("No configuration file found, using defaults and environment")
	}
	return nil
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if viper.GetString("log.format") == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func authConfig() auth.Config {
	return auth.Config{
		JWTSecret:     viper.GetString("auth.jwt_secret"),
		TokenDuration: viper.GetDuration("auth.token_duration_minutes") * time.Minute,
		RequireToken:  viper.GetBool("auth.require_token"),
	}
}

func corsConfig() apigateway.CORSConfig {
	return apigateway.CORSConfig{
		AllowedOrigins: viper.GetStringSlice("cors.allowed_origins"),
		AllowedMethods: viper.GetStringSlice("cors.allowed_methods"),
		AllowedHeaders: viper.GetStringSlice("cors.allowed_headers"),
	}
}

func websocketConfig() wsconn.Config {
	cfg := wsconn.DefaultConfig()
	cfg.PongWait = viper.GetDuration("websocket.pong_wait_seconds") * time.Second
	cfg.WriteWait = viper.GetDuration("websocket.write_wait_seconds") * time.Second
	cfg.SendBuffer = viper.GetInt("websocket.send_buffer")
	cfg.ReadLimit = viper.GetInt64("websocket.read_limit_bytes")
	return cfg
}

func relayConfig() relay.Config {
	perspective := relay.ScorePerspective(viper.GetString("relay.score_perspective"))
	switch perspective {
	case relay.PerspectiveSender, relay.PerspectiveRecipient:
	default:
		slog.Warn("Unknown score perspective, relaying verbatim", "value", perspective)
		perspective = relay.PerspectiveSender
	}
	return relay.Config{
		ScorePerspective: perspective,
		MailboxSize:      viper.GetInt("relay.mailbox_size"),
	}
}
