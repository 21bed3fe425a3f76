package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/renthus/renthus-admin/internal/api/http/handler"
	"github.com/renthus/renthus-admin/internal/api/http/middleware"
	"github.com/renthus/renthus-admin/internal/auth"
	"github.com/renthus/renthus-admin/internal/billing"
	"github.com/renthus/renthus-admin/internal/companies"
	"github.com/renthus/renthus-admin/internal/orders"
	"github.com/renthus/renthus-admin/internal/printing"
	"github.com/renthus/renthus-admin/internal/whatsapp"
	"github.com/renthus/renthus-admin/internal/workspace"
)

// Services bundles everything the route table needs.
type Services struct {
	Auth       *auth.Service
	AuthConfig auth.Config
	Gate       *workspace.Gate
	Companies  *companies.Service
	Orders     *orders.Service
	Whatsapp   *whatsapp.Service
	Billing    *billing.Service
	Agents     *printing.AgentStore
	Tokens     *printing.TokenStore
	Jobs       *printing.JobStore
	Printers   *printing.PrinterStore
	Bundler    *printing.Bundler
	Printing   printing.Config
	Http       Config
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.Metrics())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(srvs.Auth, srvs.AuthConfig.Secret, srvs.Http.SessionCookieMaxAge, srvs.Http.CookieSecure)
	workspaceHandler := handler.NewWorkspaceHandler(srvs.Gate, srvs.Companies, srvs.Http.CookieSecure)
	ordersHandler := handler.NewOrdersHandler(srvs.Gate, srvs.Orders, srvs.Agents)
	whatsappHandler := handler.NewWhatsappHandler(srvs.Gate, srvs.Whatsapp)
	billingHandler := handler.NewBillingHandler(srvs.Gate, srvs.Billing)
	agentsHandler := handler.NewAgentsHandler(srvs.Gate, srvs.Agents, srvs.Tokens, srvs.Bundler, srvs.Printing)
	jobsHandler := handler.NewJobsHandler(srvs.Agents, srvs.Jobs, srvs.Orders)
	printersHandler := handler.NewPrintersHandler(srvs.Gate, srvs.Companies, srvs.Printers)

	api := engine.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/sync-session", authHandler.SyncSession)
	authGroup.POST("/signout", authHandler.Signout)

	ws := api.Group("/workspace")
	ws.POST("/select", workspaceHandler.Select)
	ws.POST("/clear", workspaceHandler.Clear)
	ws.GET("/current", workspaceHandler.Current)
	ws.GET("/list", workspaceHandler.List)

	api.POST("/companies/create", workspaceHandler.CreateCompany)

	ordersGroup := api.Group("/orders")
	ordersGroup.GET("/list", ordersHandler.List)
	ordersGroup.GET("/status", ordersHandler.Status)
	ordersGroup.GET("/stats", ordersHandler.Stats)
	ordersGroup.GET("/:id", ordersHandler.Get)

	api.POST("/reports/summary", ordersHandler.ReportSummary)

	wa := api.Group("/whatsapp")
	wa.GET("/threads", whatsappHandler.Threads)
	wa.GET("/threads/:id/messages", whatsappHandler.Messages)
	wa.POST("/threads/:id/read", whatsappHandler.MarkRead)
	wa.POST("/send", whatsappHandler.Send)

	billingGroup := api.Group("/billing")
	billingGroup.GET("/status", billingHandler.Status)
	billingGroup.POST("/allow-overage", billingHandler.AllowOverage)

	print := api.Group("/print")
	print.POST("/agents", agentsHandler.Create)
	print.POST("/agents/:id/generate-download-token", agentsHandler.GenerateDownloadToken)
	print.GET("/agents/:id/download", agentsHandler.Download)

	agentAuth := middleware.AgentAuth(srvs.Agents)
	print.GET("/jobs/poll", agentAuth, jobsHandler.Poll)
	print.POST("/jobs/:id/status", agentAuth, jobsHandler.Status)
	print.GET("/companies/:companyId/printers", agentAuth, printersHandler.ListForAgent)
	print.POST("/companies/:companyId/printers", printersHandler.Register)
}
