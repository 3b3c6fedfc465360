package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prepwise/interview-gateway/internal/config"
	"github.com/prepwise/interview-gateway/internal/gateway"
	"github.com/prepwise/interview-gateway/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not up yet
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("voice_service_url", cfg.VoiceServiceURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Interview Gateway starting")

	gw := gateway.New(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.Handler())
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(readinessChecks(cfg)...))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// readinessChecks validates the configuration of each downstream dependency.
// No paid API calls are made; a present credential and endpoint count as
// ready.
func readinessChecks(cfg *config.Config) []observability.DependencyCheck {
	return []observability.DependencyCheck{
		{
			Name: "deepgram",
			Check: func(ctx context.Context) (bool, error) {
				if cfg.DeepgramAPIKey == "" {
					return false, fmt.Errorf("missing Deepgram API key")
				}
				return true, nil
			},
		},
		{
			Name: "tts",
			Check: func(ctx context.Context) (bool, error) {
				if cfg.TTSAPIKey == "" || cfg.TTSAPIURL == "" {
					return false, fmt.Errorf("speech synthesis not configured")
				}
				return true, nil
			},
		},
		{
			Name: "generation",
			Check: func(ctx context.Context) (bool, error) {
				if cfg.GenAPIKey == "" || cfg.GenAPIURL == "" {
					return false, fmt.Errorf("text generation not configured")
				}
				return true, nil
			},
		},
		{
			Name: "voice_service",
			Check: func(ctx context.Context) (bool, error) {
				// Optional dependency: the local pipeline covers its absence
				return true, nil
			},
		},
	}
}
