// main.go
//
// Entry point for the snaildle server.
//   - Loads .env, parses config, sets up logging and tracing.
//   - Opens the store, the channel locker and the word lists.
//   - Serves the HTTP API until SIGINT/SIGTERM, then drains in-flight requests.
//
// `snaildle hash-secret [secret]` prints the bcrypt hash for API_CLIENT_SECRET_HASH
// (the secret is read from stdin when no argument is given).

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/snaildle/internal/config"
	"github.com/robalobadob/snaildle/internal/httpserver"
	"github.com/robalobadob/snaildle/internal/lock"
	"github.com/robalobadob/snaildle/internal/session"
	"github.com/robalobadob/snaildle/internal/stats"
	"github.com/robalobadob/snaildle/internal/store"
	"github.com/robalobadob/snaildle/internal/telemetry"
	"github.com/robalobadob/snaildle/internal/words"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-secret" {
		if err := hashSecret(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	list, err := words.Load(words.Options{AnswersFile: cfg.AnswersFile, AllowedFile: cfg.AllowedFile})
	if err != nil {
		return fmt.Errorf("load word lists: %w", err)
	}
	answers, allowed := list.Stats()
	log.Info().Int("answers", answers).Int("allowed", allowed).Msg("word lists loaded")

	st, err := store.Open(ctx, store.Config{Type: cfg.DBType, Path: cfg.DBPath, URL: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info().Str("db_type", cfg.DBType).Msg("store ready")

	var locker lock.Locker
	if cfg.RedisAddr != "" {
		rl, err := lock.NewRedis(ctx, lock.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.LockTTL,
		})
		if err != nil {
			return err
		}
		defer rl.Close()
		locker = rl
	} else {
		locker = lock.NewLocal()
	}

	sessions := session.New(st, list, locker, session.WithLockTimeout(cfg.LockTimeout))
	if _, err := sessions.ResumeActive(ctx); err != nil {
		return fmt.Errorf("resume active games: %w", err)
	}
	statsEngine := stats.New(st, stats.WithMaxGuesses(cfg.StatsMaxGuesses), stats.WithTopN(cfg.StatsTopN))

	if !cfg.AuthEnabled() {
		log.Warn().Msg("API_CLIENT_SECRET_HASH not set; API routes are unauthenticated")
	}
	srv := httpserver.New(httpserver.Options{
		Sessions: sessions,
		Stats:    statsEngine,
		Words:    list,
		Auth: httpserver.AuthConfig{
			ClientID:   cfg.APIClientID,
			SecretHash: cfg.APIClientSecretHash,
			JWTSecret:  cfg.JWTSecret,
			Expiry:     cfg.JWTExpiry,
		},
		ClientOrigin:   cfg.ClientOrigin,
		RequestTimeout: cfg.RequestTimeout,
	})

	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting snaildle server")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("grace", cfg.ShutdownGracePeriod).Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	return hs.Shutdown(sctx)
}

func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func hashSecret(args []string) error {
	var secret string
	if len(args) > 0 {
		secret = args[0]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read secret: %w", err)
		}
		secret = strings.TrimSpace(line)
	}
	h, err := httpserver.HashSecret(secret)
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}
