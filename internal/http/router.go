package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/auth"
	"github.com/surojitgharami/alumni-portal/internal/config"
	"github.com/surojitgharami/alumni-portal/internal/http/handlers"
	adminhandlers "github.com/surojitgharami/alumni-portal/internal/http/handlers/admin"
	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/modules/donations"
	"github.com/surojitgharami/alumni-portal/internal/modules/events"
	"github.com/surojitgharami/alumni-portal/internal/modules/jobs"
	"github.com/surojitgharami/alumni-portal/internal/modules/lifecycle"
	"github.com/surojitgharami/alumni-portal/internal/modules/notifications"
	"github.com/surojitgharami/alumni-portal/internal/modules/payments"
	"github.com/surojitgharami/alumni-portal/internal/modules/reconciliation"
	"github.com/surojitgharami/alumni-portal/internal/modules/roster"
	"github.com/surojitgharami/alumni-portal/internal/modules/users"
)

// Deps carries everything the router needs; main builds it once.
type Deps struct {
	Cfg    config.Config
	DB     *gorm.DB
	Logger *slog.Logger

	AuthSvc       *auth.Service
	Payments      *payments.Service
	Webhooks      *payments.WebhookService
	Promoter      *lifecycle.Promoter
	Reconcile     *reconciliation.Service
	Roster        *roster.Service
	Events        *events.Service
	Jobs          *jobs.Service
	Notifications *notifications.Service
	Donations     *donations.Repo
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
		middleware.Auth(d.Cfg.JWT.Secret),
	)

	authH := handlers.NewAuthHandlers(d.AuthSvc)
	profileH := handlers.NewProfileHandlers(users.NewRepo(d.DB))
	paymentH := handlers.NewPaymentHandlers(d.Payments)
	webhookH := handlers.NewWebhookHandlers(d.Logger, d.Webhooks)
	eventH := handlers.NewEventHandlers(d.Events)
	jobH := handlers.NewJobHandlers(d.Jobs)
	notifH := handlers.NewNotificationHandlers(d.Notifications)
	donationH := handlers.NewDonationHandlers(d.Donations)
	adminH := adminhandlers.NewHandlers(d.Promoter, d.Reconcile, d.Roster, d.Events, d.Jobs)

	// Public
	ag := r.Group("/auth")
	{
		ag.POST("/verify-registration", authH.VerifyRegistration)
		ag.POST("/signup", authH.Signup)
		ag.POST("/login", authH.Login)
		ag.POST("/refresh", authH.Refresh)
	}
	r.POST("/webhooks/razorpay", webhookH.Razorpay)

	// Authenticated
	priv := r.Group("/", middleware.RequireAuth())
	{
		priv.POST("/auth/logout", authH.Logout)

		priv.GET("/profile/me", profileH.Me)
		priv.PUT("/profile/me", profileH.Update)

		priv.POST("/payments/create-order", paymentH.CreateOrder)
		priv.POST("/payments/verify", paymentH.Verify)
		priv.GET("/payments/status/:order_id", paymentH.Status)

		priv.GET("/events", eventH.List)
		priv.POST("/events", eventH.Create)
		priv.POST("/events/:id/register", eventH.Register)

		priv.GET("/jobs", jobH.List)
		priv.POST("/jobs", jobH.Create)

		priv.GET("/donations/my", donationH.My)

		priv.GET("/notifications", notifH.List)
		priv.POST("/notifications/:id/read", notifH.MarkRead)
	}

	// Admin
	adm := r.Group("/admin", middleware.RequireAdmin())
	{
		adm.POST("/cron/upgrade-students", adminH.UpgradeStudents)
		adm.GET("/payments/reconcile", adminH.ReconcilePayments)
		adm.GET("/payments/dashboard", adminH.PaymentsDashboard)
		adm.POST("/payments/webhook-retry/:id", adminH.RetryWebhook)
		adm.POST("/roster/import", adminH.ImportRoster)
		adm.POST("/events/:id/approve", adminH.ApproveEvent)
		adm.POST("/jobs/:id/approve", adminH.ApproveJob)
		adm.GET("/donations", donationH.AdminList)
	}

	return r
}
