package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/This-is-UserNamee/WebQuiz/internal/config"
	"github.com/This-is-UserNamee/WebQuiz/internal/coordinator"
	"github.com/This-is-UserNamee/WebQuiz/internal/httpapi"
	"github.com/This-is-UserNamee/WebQuiz/internal/question"
	"github.com/This-is-UserNamee/WebQuiz/internal/registry"
	"github.com/This-is-UserNamee/WebQuiz/internal/session"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// The server must not accept a single connection without a valid bank.
	bank, err := question.Load(cfg.QuestionsPath)
	if err != nil {
		logger.Fatal("loading question bank", zap.Error(err))
	}
	logger.Info("question bank loaded", zap.Int("questions", len(bank)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New(ctx, logger, bank, session.DefaultDurations())
	coord := coordinator.New(ctx, logger, reg)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(logger, coord, reg),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shut down cleanly")
}
