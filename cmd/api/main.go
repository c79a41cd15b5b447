package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/collabkit/ticketdesk/internal/api/http"
	"github.com/collabkit/ticketdesk/internal/api/http/handlers"
	"github.com/collabkit/ticketdesk/internal/auth"
	"github.com/collabkit/ticketdesk/internal/config"
	"github.com/collabkit/ticketdesk/internal/events"
	"github.com/collabkit/ticketdesk/internal/notify"
	"github.com/collabkit/ticketdesk/internal/observability"
	"github.com/collabkit/ticketdesk/internal/persistence"
	"github.com/collabkit/ticketdesk/internal/repository"
	"github.com/collabkit/ticketdesk/internal/service"
	"github.com/collabkit/ticketdesk/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	fileRepo := repository.NewFileRepository(pool)
	starRepo := repository.NewStarRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	preferenceRepo := repository.NewPreferenceRepository(pool)

	dispatcher := events.NewAsyncDispatcher(logger)
	whatsapp := notify.NewWhatsAppSender(cfg.Notify, logger)
	email := notify.NewEmailSender(cfg.Notify, logger)
	blobs := storage.NewBlobStore(cfg.Storage, logger)

	access := service.NewAccessResolver(memberRepo)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	otpStore := auth.NewOTPStore(redis.Client, cfg.Auth.OTPTTLMinutes, cfg.Auth.BcryptCost)

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:       userRepo,
		PreferenceRepo: preferenceRepo,
		OTP:            otpStore,
		Tokens:         tokens,
		Email:          email,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		MemberRepo: memberRepo,
		FileRepo:   fileRepo,
		StarRepo:   starRepo,
		UserRepo:   userRepo,
		Access:     access,
		Blobs:      blobs,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		Access:      access,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(notificationRepo, logger)
	loader := service.NewTicketLoader(service.LoaderDependencies{
		TicketRepo:  ticketRepo,
		MemberRepo:  memberRepo,
		FileRepo:    fileRepo,
		StarRepo:    starRepo,
		MessageRepo: messageRepo,
		UserRepo:    userRepo,
		Logger:      logger,
	})

	notificationDispatcher := service.NewNotificationDispatcher(service.DispatcherDependencies{
		MemberRepo:       memberRepo,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
		PreferenceRepo:   preferenceRepo,
		WhatsApp:         whatsapp,
		Blobs:            blobs,
		Logger:           logger,
	})
	notificationDispatcher.RegisterHandlers(dispatcher)

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{BodyLimit: 32 * 1024 * 1024})
	httptransport.RegisterMiddlewares(app, logger, metrics, time.Duration(cfg.App.RequestTimeoutSeconds)*time.Second)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(userService),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService, loader),
		Messages:       handlers.NewMessagesHandler(messageService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	// Let in-flight event handlers drain before the process exits.
	if waiter, ok := dispatcher.(events.Waiter); ok {
		waiter.Wait()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
