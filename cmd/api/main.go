package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"outfitgen/internal/http/handlers"
	httpapi "outfitgen/internal/http/httpapi"
	"outfitgen/internal/imaging"
	"outfitgen/internal/infra"
	"outfitgen/internal/pipeline"
	"outfitgen/internal/providers/falcdn"
	"outfitgen/internal/providers/nanobanana"
	"outfitgen/internal/providers/stylist"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	describer, err := stylist.NewClient(stylist.Options{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAIModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure generation engine client")
	}

	uploader, err := falcdn.NewClient(falcdn.Options{
		APIKey:  cfg.FALAPIKey,
		BaseURL: cfg.FALBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure CDN client")
	}

	synthesizer, err := nanobanana.NewClient(nanobanana.Options{
		APIKey:          cfg.NanoBananaAPIKey,
		BaseURL:         cfg.NanoBananaBaseURL,
		Logger:          &logger,
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure synthesis engine client")
	}

	codec := imaging.NewCodec(cfg.MaxImageSizeBytes)
	svc := pipeline.NewService(codec, describer, uploader, synthesizer, cfg.MaxImageDimension, &logger)

	app := handlers.NewApp(svc, describer, &logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
