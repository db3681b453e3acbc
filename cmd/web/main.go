package main

import (
	"context"
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/auth"
	"github.com/surojitgharami/alumni-portal/internal/config"
	apphttp "github.com/surojitgharami/alumni-portal/internal/http"
	"github.com/surojitgharami/alumni-portal/internal/mailer"
	"github.com/surojitgharami/alumni-portal/internal/modules/donations"
	"github.com/surojitgharami/alumni-portal/internal/modules/events"
	"github.com/surojitgharami/alumni-portal/internal/modules/jobs"
	"github.com/surojitgharami/alumni-portal/internal/modules/lifecycle"
	"github.com/surojitgharami/alumni-portal/internal/modules/notifications"
	"github.com/surojitgharami/alumni-portal/internal/modules/payments"
	"github.com/surojitgharami/alumni-portal/internal/modules/reconciliation"
	"github.com/surojitgharami/alumni-portal/internal/modules/roster"
	"github.com/surojitgharami/alumni-portal/internal/storage"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// TranslateError makes duplicate-key detection portable across drivers.
	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	store, err := storage.FromEnv(context.Background())
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	logger.Info("storage ready", "driver", store.Driver)

	var mail mailer.Service
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTP)
	} else {
		logger.Warn("SMTP_HOST not set, outgoing mail is a no-op")
		mail = &mailer.Mock{}
	}

	// Assign through the concrete type first so a disabled provider stays a
	// true nil interface.
	var provider payments.Provider
	if rp := payments.NewRazorpayProvider(cfg.Razorpay); rp != nil {
		provider = rp
	} else {
		logger.Warn("razorpay credentials not set, order creation disabled")
	}

	paySvc := payments.NewService(db, provider, cfg.Razorpay.KeySecret, cfg.MembershipAmount, cfg.Currency)
	webhookSvc := payments.NewWebhookService(db, paySvc, cfg.Razorpay.WebhookSecret)
	notifSvc := notifications.NewService(db)
	promoter := lifecycle.NewPromoter(db, mail, notifSvc, cfg.SMTP.FromAddr, cfg.SMTP.FromName)
	rosterSvc := roster.NewService(db, store.Storage)
	authSvc := auth.NewService(db, rosterSvc, cfg)

	cronRunner, err := lifecycle.StartScheduler(promoter, logger)
	if err != nil {
		log.Fatalf("scheduler init failed: %v", err)
	}
	defer cronRunner.Stop()

	r := apphttp.NewRouter(apphttp.Deps{
		Cfg:           cfg,
		DB:            db,
		Logger:        logger,
		AuthSvc:       authSvc,
		Payments:      paySvc,
		Webhooks:      webhookSvc,
		Promoter:      promoter,
		Reconcile:     reconciliation.NewService(db, webhookSvc),
		Roster:        rosterSvc,
		Events:        events.NewService(db),
		Jobs:          jobs.NewService(db),
		Notifications: notifSvc,
		Donations:     donations.NewRepo(db),
	})

	logger.Info("listening", "addr", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
