package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/cache"
	"ms-eventpass/internal/config"
	"ms-eventpass/internal/database"
	"ms-eventpass/internal/database/migrations"
	"ms-eventpass/internal/events"
	event_db "ms-eventpass/internal/events/db"
	"ms-eventpass/internal/events/event_api"
	"ms-eventpass/internal/kafka"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/notify"
	notify_db "ms-eventpass/internal/notify/db"
	"ms-eventpass/internal/notify/mailer"
	"ms-eventpass/internal/notify/notify_api"
	"ms-eventpass/internal/notify/push"
	"ms-eventpass/internal/payment"
	"ms-eventpass/internal/payment/payment_api"
	"ms-eventpass/internal/profiles"
	"ms-eventpass/internal/profiles/profile_api"
	"ms-eventpass/internal/sse"
	ticket_db "ms-eventpass/internal/tickets/db"
	"ms-eventpass/internal/tickets/qr"
	tickets "ms-eventpass/internal/tickets/service"
	"ms-eventpass/internal/tickets/template"
	"ms-eventpass/internal/tickets/ticket_api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}

func buildVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.TokenVerifier {
	if cfg.Mode == "unverified" {
		log.Warn("AUTH", "AUTH_MODE=unverified: bearer token signatures are NOT checked")
		return auth.UnverifiedVerifier{}
	}
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to initialise OIDC verifier for %s: %v", cfg.OIDCIssuer, err))
	}
	log.Info("AUTH", fmt.Sprintf("Verifying bearer tokens against %s", cfg.OIDCIssuer))
	return verifier
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting EventPass service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("CONFIG", err.Error())
	}

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(cfg.Database.DSN(), logger)
		if err := runner.Initialize(); err != nil {
			logger.Fatal("MIGRATION", err.Error())
		}
		if err := runner.MigrateUp(); err != nil {
			logger.Fatal("MIGRATION", err.Error())
		}
		if err := runner.Close(); err != nil {
			logger.Warn("MIGRATION", fmt.Sprintf("Failed to close migration runner: %v", err))
		}
	}

	bunDB, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	redisClient, err := cache.Connect(ctx, cfg.Redis.Addr, logger)
	if err != nil {
		logger.Fatal("REDIS", err.Error())
	}
	defer redisClient.Close()

	profileResolver := profiles.NewResolver(&profiles.DB{Bun: bunDB}, redisClient, cfg.Redis.ProfileTTL, logger)

	gateway, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, logger)
	if err != nil {
		logger.Fatal("STRIPE", err.Error())
	}
	paymentService := payment.NewPaymentService(
		gateway,
		payment.NewConfirmationCache(redisClient, cfg.Redis.PaymentTTL),
		cfg.Stripe.WebhookSecret,
		cfg.Stripe.DefaultCurrency,
		logger,
	)

	// Interfaces stay nil rather than holding a nil pointer when a
	// collaborator is switched off.
	var publisher tickets.Publisher
	var updateConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		publisher = producer
		logger.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			cfg.Kafka.Topics.TicketIssued,
			cfg.Kafka.Topics.TicketCheckedIn,
			cfg.Kafka.Topics.EventUpdated,
		}
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, requiredTopics, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}

		updateConsumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EventUpdated, cfg.Kafka.GroupID, logger)
		defer updateConsumer.Close()
	} else {
		logger.Warn("KAFKA", "Kafka disabled, domain events will not be published")
	}

	var updateMailer notify.Mailer
	if cfg.Email.MailerSendAPIKey != "" {
		updateMailer = mailer.NewMailerService(cfg.Email.MailerSendAPIKey, cfg.Email.FromName, cfg.Email.FromEmail, cfg.Email.TemplateID, logger)
	} else {
		logger.Warn("EMAIL", "MAILERSEND_API_KEY not set, update emails disabled")
	}

	pushSender := push.NewWebPushSender(push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subscriber:      cfg.Push.Subscriber,
		TTL:             cfg.Push.TTL,
	})

	notifier := notify.NewNotifier(&notify_db.DB{Bun: bunDB}, profileResolver, pushSender, updateMailer, logger, notify.Options{
		Concurrency:    cfg.Push.Concurrency,
		SendTimeout:    cfg.Push.Timeout,
		PruneThreshold: cfg.Push.PruneThreshold,
		EventURLBase:   cfg.Email.EventURLBase,
	})

	if updateConsumer != nil {
		go func() {
			if err := updateConsumer.Start(ctx, notifier.ConsumeEventUpdated); err != nil {
				logger.Error("KAFKA", fmt.Sprintf("Event update consumer stopped: %v", err))
			}
		}()
	}

	checkins := sse.NewCheckinEventEmitter()
	eventService := events.NewService(&event_db.DB{Bun: bunDB}, profileResolver, notifier, logger)

	ticketService := tickets.NewTicketService(tickets.Dependencies{
		DB:        &ticket_db.DB{Bun: bunDB},
		Profiles:  profileResolver,
		Payments:  paymentService,
		QR:        qr.NewQRGenerator(cfg.Tickets.QRSecret),
		Publisher: publisher,
		Checkins:  checkins,
		PDF:       template.NewTicketPDFGenerator(cfg.Tickets.FontPath),
		Logger:    logger,
	}, tickets.Options{
		EnforceCapacity:       cfg.Tickets.CapacityPolicy == config.CapacityEnforce,
		RequireEventOnCheckin: cfg.Tickets.CheckinRequireEvent,
		PaymentTimeout:        cfg.Stripe.PaymentTimeout,
		DefaultCurrency:       cfg.Stripe.DefaultCurrency,
		IssuedTopic:           cfg.Kafka.Topics.TicketIssued,
		CheckedInTopic:        cfg.Kafka.Topics.TicketCheckedIn,
	})

	ticketHandler := ticket_api.NewHandler(ticketService, logger)
	paymentHandler := payment_api.NewHandler(paymentService, logger)
	profileHandler := profile_api.NewHandler(profileResolver)
	notifyHandler := notify_api.NewHandler(notifier)
	eventHandler := event_api.NewHandler(eventService, checkins, logger)

	verifier := buildVerifier(ctx, cfg.Auth, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	// --- Public Routes ---
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ticketHandler.PublicRoutes(r)
	paymentHandler.PublicRoutes(r)
	logger.Info("ROUTER", "Public ticket count and payment webhook endpoints registered")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, logger))
		logger.Info("AUTH", "Bearer token middleware applied to protected API routes")

		profileHandler.Routes(r)
		eventHandler.Routes(r)
		ticketHandler.Routes(r)
		paymentHandler.Routes(r)
		notifyHandler.Routes(r)
		logger.Info("ROUTER", "Profile, event, ticket, payment and notification routes registered")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 EventPass service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancelBackground()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ EventPass service shutdown complete")
	}
}
