package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/slotbook/internal/config"
	"github.com/Freeeeeet/slotbook/internal/controller"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	reserveRetryBase = 50 * time.Millisecond
	shutdownTimeout  = 5 * time.Second
)

// App собранное приложение: хранилища, сервисы, бот и сервер метрик
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	stores   *Stores
	services controller.Services
}

// New собирает приложение по конфигурации
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	stores, err := NewStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		stores:   stores,
		services: NewServices(cfg, stores, logger),
	}, nil
}

// NewServices создаёт сервисы поверх хранилищ
func NewServices(cfg *config.Config, stores *Stores, logger *zap.Logger) controller.Services {
	opts := []service.Option{
		service.WithLocation(cfg.Location),
		service.WithReserveRetries(cfg.ReserveRetries, reserveRetryBase),
		service.WithDaysAhead(cfg.DaysAhead),
	}

	availability := service.NewAvailabilityService(stores.Windows, stores.Ledger, logger, opts...)

	return controller.Services{
		Users:        service.NewUserService(stores.Users, logger),
		Schedule:     service.NewScheduleService(stores.Windows, logger),
		Availability: availability,
		Bookings:     service.NewBookingService(stores.Ledger, stores.Catalog, availability, logger, opts...),
		Catalog:      service.NewCatalogService(stores.Catalog, stores.Users, logger),
	}
}

// Run запускает бота и сервер метрик и блокируется до отмены ctx
func (a *App) Run(ctx context.Context) error {
	if a.cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required but not set")
	}

	b, err := bot.New(a.cfg.TelegramToken,
		bot.WithErrorsHandler(func(err error) {
			a.logger.Error("Telegram API error", zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	botController := controller.NewBotController(b, a.services, a.cfg.Location, a.logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		// Меню команд не критично для работы
		a.logger.Warn("Bot commands menu not set", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return botController.Start(ctx)
	})

	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return a.serveMetrics(ctx)
		})
	}

	return g.Wait()
}

func (a *App) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}()

	a.logger.Info("📈 Metrics server listening", zap.String("addr", a.cfg.MetricsAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Close освобождает ресурсы приложения
func (a *App) Close() {
	a.stores.Close()
}
