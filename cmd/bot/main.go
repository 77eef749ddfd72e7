package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/app"
	"github.com/Freeeeeet/telemed_bot/internal/config"
	"github.com/Freeeeeet/telemed_bot/internal/controller"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/telemed_bot/internal/controller/state"
	"github.com/Freeeeeet/telemed_bot/internal/controller/webhook"
	"github.com/Freeeeeet/telemed_bot/internal/documents"
	"github.com/Freeeeeet/telemed_bot/internal/lifecycle"
	"github.com/Freeeeeet/telemed_bot/internal/repository"
	"github.com/Freeeeeet/telemed_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)

	defer logger.Sync()

	logger.Sugar().Infow("Starting telemed bot",
		"environment", cfg.Environment,
		"http_addr", cfg.HTTPAddr,
		"token_length", len(cfg.TelegramToken))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	// Репозитории
	userRepo := repository.NewUserRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	doctorRepo := repository.NewDoctorRepository(pool, logger)
	scheduleRepo := repository.NewRecurringScheduleRepository(pool, logger)
	grantRepo := repository.NewDelegationRepository(pool)

	// Сервисы
	machine := lifecycle.New(cfg.Timing())
	appointmentService := service.NewAppointmentService(appointmentRepo, slotRepo, doctorRepo, machine, logger)
	doctorService := service.NewDoctorService(doctorRepo, slotRepo, scheduleRepo, logger)

	linker := documents.NewLinker(cfg.DocumentLinkSecret, cfg.DocumentLinkTTL)
	locator := documents.NewLocator(linker, cfg.DocumentStoreURL, cfg.PublicURL)
	documentService := service.NewDocumentService(appointmentRepo, userRepo, grantRepo, appointmentService.Policy(), linker, locator, cfg.DocumentViewRetries, logger)

	deps := &callbacktypes.Handler{
		UserService:        service.NewUserService(userRepo, logger),
		AppointmentService: appointmentService,
		DelegationService:  service.NewDelegationService(grantRepo, userRepo, logger),
		DoctorService:      doctorService,
		DocumentService:    documentService,
		StateManager:       state.NewManager(),
		Logger:             logger,
		PaymentURL:         cfg.PaymentURL,
		BookingHorizon:     cfg.BookingHorizon(),
		Now:                time.Now,
	}

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	botController := controller.NewBotController(b, deps)
	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Warn("Failed to set bot commands", zap.Error(err))
	}

	// Фоновые задачи: системные переходы и слоты по шаблонам
	scheduler := app.NewScheduler(appointmentService, doctorService, cfg.SweepInterval, logger)
	scheduler.Start(ctx)

	server := webhook.NewServer(cfg.HTTPAddr, cfg.WebhookSecret, appointmentService, documentService, pool, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	if err := botController.Start(ctx); err != nil {
		logger.Error("Bot stopped with error", zap.Error(err))
	}

	logger.Info("Shutting down...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
}
