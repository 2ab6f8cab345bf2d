package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/brunobiangulo/gonarrate"
)

// serverConfig is read from the environment (and an optional .env file).
// Non-empty values override the JSON config file.
type serverConfig struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	APIKey      string `env:"API_KEY"`
	CORSOrigins string `env:"CORS_ORIGINS"`

	DBPath      string `env:"DB_PATH"`
	StorageDir  string `env:"STORAGE_DIR"`
	LexiconPath string `env:"LEXICON_PATH"`

	ClassifierProvider string `env:"CLASSIFIER_PROVIDER"`
	ClassifierModel    string `env:"CLASSIFIER_MODEL"`
	ClassifierBaseURL  string `env:"CLASSIFIER_BASE_URL"`
	ClassifierAPIKey   string `env:"CLASSIFIER_API_KEY"`

	StreamWorkers int `env:"STREAM_WORKERS" envDefault:"4"`
}

func loadServerConfig() (serverConfig, error) {
	var sc serverConfig
	if err := env.ParseWithOptions(&sc, env.Options{Prefix: "GONARRATE_"}); err != nil {
		return sc, fmt.Errorf("parse env: %w", err)
	}
	return sc, nil
}

// apply copies the environment overrides onto cfg.
func (sc serverConfig) apply(cfg *gonarrate.Config) {
	if sc.DBPath != "" {
		cfg.DBPath = sc.DBPath
	}
	if sc.StorageDir != "" {
		cfg.StorageDir = sc.StorageDir
	}
	if sc.LexiconPath != "" {
		cfg.LexiconPath = sc.LexiconPath
	}
	if sc.ClassifierProvider != "" {
		cfg.Classifier.Provider = sc.ClassifierProvider
	}
	if sc.ClassifierModel != "" {
		cfg.Classifier.Model = sc.ClassifierModel
	}
	if sc.ClassifierBaseURL != "" {
		cfg.Classifier.BaseURL = sc.ClassifierBaseURL
	}
	if sc.ClassifierAPIKey != "" {
		cfg.Classifier.APIKey = sc.ClassifierAPIKey
	}

	// Fallback: well-known provider env vars for API keys.
	if cfg.Classifier.APIKey == "" {
		switch cfg.Classifier.Provider {
		case "openai":
			cfg.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.Classifier.APIKey = os.Getenv("GROQ_API_KEY")
		case "huggingface":
			cfg.Classifier.APIKey = os.Getenv("HF_TOKEN")
		}
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	addr := flag.String("addr", "", "Listen address (overrides GONARRATE_ADDR)")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// A missing .env file is fine.
	_ = godotenv.Load()

	sc, err := loadServerConfig()
	if err != nil {
		slog.Error("reading environment", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		sc.Addr = *addr
	}

	cfg := gonarrate.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}
	sc.apply(&cfg)

	engine, err := gonarrate.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine, sc.StreamWorkers)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = h.routes()
	handler = logMiddleware(handler)
	handler = authMiddleware(sc.APIKey, handler)
	handler = corsMiddleware(sc.CORSOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         sc.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // file analysis and /stream are long-lived
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", sc.Addr, "lexicons", engine.LexiconVersion())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
