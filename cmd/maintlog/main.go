package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"maintlog/config"
	"maintlog/store"
	"maintlog/web"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database file (overrides config)")
	secret := flag.String("session-secret", "", "session cookie secret (overrides config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		cfg = loaded
	}

	// Flags that were set on the command line win over the file.
	visited := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { visited[f.Name] = true })
	if visited["listen"] {
		cfg.ListenAddr = *listenAddr
	}
	if visited["db"] {
		cfg.DatabasePath = *dbPath
	}
	if visited["session-secret"] {
		cfg.SessionSecret = *secret
	}
	if visited["debug"] {
		cfg.Debug = *debug
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	if cfg.SessionSecret == "" {
		logger.Fatal().Msg("session_secret must be set")
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("db", cfg.DatabasePath).Msg("failed to open database")
	}
	defer st.Close()

	srv := web.New(st, cfg, logger)

	logger.Info().Str("addr", cfg.ListenAddr).Str("db", cfg.DatabasePath).
		Msg("server starting")
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
