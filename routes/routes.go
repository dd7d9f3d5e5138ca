package routes

import (
	"cashier/controllers/admin"
	"cashier/controllers/user"
	"cashier/metrics"
	"cashier/middlewares"
	"cashier/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	JWTSecret string
	ProofDir  string
}

func Setup(app *fiber.App, a *services.App, opts Options) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	if opts.ProofDir != "" {
		app.Static("/proofs", opts.ProofDir, fiber.Static{Browse: false})
	}

	auth := middlewares.NewAuthenticator(a.Gate, opts.JWTSecret).Handler()

	u := user.New(a)
	api := app.Group("/api", auth)
	api.Post("/requests/deposit", u.CreateDeposit)
	api.Post("/requests/withdrawal", u.CreateWithdrawal)
	api.Post("/requests/:id/proof", u.AttachProof)
	api.Post("/requests/:id/cancel", u.Cancel)
	api.Get("/requests", u.ListRequests)
	api.Get("/transactions", u.ListTransactions)
	api.Get("/balance", u.Balance)
	api.Get("/notifications", u.ListNotifications)
	api.Post("/notifications/read-all", u.MarkAllRead)
	api.Post("/notifications/:id/read", u.MarkRead)
	api.Put("/notifications/preferences", u.UpdatePreferences)

	ad := admin.New(a)
	adm := app.Group("/admin", auth, middlewares.AdminOnly)
	adm.Get("/requests", ad.ListRequests)
	adm.Post("/requests/:id/approve", ad.Approve)
	adm.Post("/requests/:id/reject", ad.Reject)
	adm.Post("/balance/adjust", ad.AdjustBalance)
	adm.Get("/balance/:ownerID/reconcile", ad.Reconcile)
	adm.Get("/transactions", ad.ListTransactions)
	adm.Get("/logs", ad.ListLogs)
	adm.Get("/summary", ad.Summary)
	adm.Post("/notifications/broadcast", ad.Broadcast)
}
