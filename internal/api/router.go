package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/legalwatchdog/platform/internal/account"
	"github.com/legalwatchdog/platform/internal/api/handlers"
	"github.com/legalwatchdog/platform/internal/api/middleware"
	"github.com/legalwatchdog/platform/internal/apikey"
	"github.com/legalwatchdog/platform/internal/audit"
	"github.com/legalwatchdog/platform/internal/auth"
	"github.com/legalwatchdog/platform/internal/billing"
	"github.com/legalwatchdog/platform/internal/cache"
	"github.com/legalwatchdog/platform/internal/config"
	"github.com/legalwatchdog/platform/internal/notify"
	"github.com/legalwatchdog/platform/internal/org"
	"github.com/legalwatchdog/platform/internal/queue"
	"github.com/legalwatchdog/platform/internal/scrape"
	"github.com/legalwatchdog/platform/internal/search"
	"github.com/legalwatchdog/platform/internal/ticket"
	"github.com/legalwatchdog/platform/internal/webhook"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux
	cfg := rt.cfg

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Auth plumbing
	codec := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer,
		time.Duration(cfg.Auth.JWTExpiryHours)*time.Hour)
	guestCodec := auth.NewGuestCodec(cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.GuestTokenDays)*24*time.Hour)
	revocations := auth.NewRevocationStore(rt.redis)
	directory := auth.NewPgDirectory(rt.db)
	resolver := auth.NewResolver(codec, revocations, directory)

	// Services
	appCache := cache.NewCache(rt.redis)
	queueClient := queue.NewClient(cfg.Redis)
	dispatcher := webhook.NewDispatcher(rt.db)
	notifySvc := notify.NewService(rt.db, dispatcher)
	accountSvc := account.NewService(rt.db, appCache, codec, revocations, queueClient,
		cfg.Auth.LoginMaxPerMin, cfg.Auth.OTPExpiryMins, cfg.Billing.TrialDays)
	orgSvc := org.NewService(rt.db)
	apikeySvc := apikey.NewService(rt.db)
	ticketSvc := ticket.NewService(rt.db, guestCodec, notifySvc)
	scrapeSvc := scrape.NewService(rt.db, queueClient)
	discovery := scrape.NewDiscovery(cfg.Scraper.OpenAIKey, cfg.Scraper.DiscoveryModel)
	embedder := search.NewEmbedder(cfg.Scraper.OpenAIKey, cfg.Search.EmbeddingModel)
	searchSvc := search.NewService(rt.db, embedder)
	billingSvc := billing.NewService(rt.db)
	webhookSvc := webhook.NewService(rt.db)
	auditSvc := audit.NewService(rt.db)

	// Middleware chains
	chain := middleware.NewChain(resolver)
	keyAuth := middleware.NewAPIKeyAuth(apikeySvc, directory, cfg.Auth.APIKeyHeader)
	guestChain := middleware.NewGuestChain(guestCodec, ticketSvc)
	billingGuard := middleware.NewBillingGuard(billingSvc, cfg.IsDev())
	auditTrail := middleware.NewAuditTrail(auditSvc)

	// Handlers
	accountH := handlers.NewAccountHandler(accountSvc)
	orgH := handlers.NewOrgHandler(orgSvc)
	apikeyH := handlers.NewAPIKeyHandler(apikeySvc)
	ticketH := handlers.NewTicketHandler(ticketSvc)
	scrapeH := handlers.NewScrapeHandler(scrapeSvc, discovery)
	searchH := handlers.NewSearchHandler(searchSvc)
	billingH := handlers.NewBillingHandler(billingSvc)
	notifyH := handlers.NewNotifyHandler(notifySvc)
	webhookH := handlers.NewWebhookHandler(webhookSvc)
	auditH := handlers.NewAuditHandler(auditSvc)

	r.Route("/api/v1", func(r chi.Router) {
		// Public: tokens and emailed secrets are the credentials here.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", accountH.Register)
			r.Post("/login", accountH.Login)
			r.Post("/logout", accountH.Logout)
			r.Post("/verify/request", accountH.RequestVerification)
			r.Post("/verify/confirm", accountH.VerifyEmail)
		})
		r.Post("/invitations/accept", orgH.AcceptInvitation)
		r.Post("/guest/redeem", ticketH.RedeemMagicLink)

		// Guest surface: one ticket, nothing else.
		r.Route("/guest/ticket", func(r chi.Router) {
			r.Use(guestChain.Authenticate)
			r.Get("/", ticketH.GuestView)
			r.Post("/comments", ticketH.GuestComment)
		})

		// Organization-scoped surface.
		r.Route("/organizations/{organization_id}", func(r chi.Router) {
			r.Use(keyAuth.Authenticate)
			r.Use(chain.Authenticate)
			r.Use(chain.RequireOrg)
			r.Use(auditTrail.Record)

			r.Get("/", orgH.Get)

			r.Route("/members", func(r chi.Router) {
				r.With(chain.RequirePermission(auth.PermManageUsers)).Get("/", orgH.ListMembers)
				r.With(chain.RequirePermission(auth.PermDeactivateUsers)).Post("/{user_id}/deactivate", orgH.DeactivateMember)
				r.With(chain.RequirePermission(auth.PermAssignRoles)).Post("/{user_id}/role", orgH.AssignRole)
			})

			r.Route("/roles", func(r chi.Router) {
				r.With(chain.RequirePermission(auth.PermViewRoles)).Get("/", orgH.ListRoles)
				r.With(chain.RequirePermission(auth.PermCreateRoles)).Post("/", orgH.CreateRole)
				r.With(chain.RequirePermission(auth.PermEditRoles)).Put("/{role_id}", orgH.UpdateRole)
				r.With(chain.RequirePermission(auth.PermDeleteRoles)).Delete("/{role_id}", orgH.DeleteRole)
			})

			r.With(chain.RequirePermission(auth.PermInviteUsers)).Post("/invitations", orgH.Invite)

			r.Route("/api-keys", func(r chi.Router) {
				r.Use(chain.RequirePermission(auth.PermManageAPIKeys))
				r.Post("/", apikeyH.Create)
				r.Get("/", apikeyH.List)
				r.Delete("/{key_id}", apikeyH.Revoke)
				r.Post("/{key_id}/rotate", apikeyH.Rotate)
			})

			r.Route("/billing", func(r chi.Router) {
				r.Use(chain.RequireBillingAdmin)
				r.Get("/", billingH.Get)
				r.Put("/status", billingH.SetStatus)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notifyH.List)
				r.Post("/{notification_id}/read", notifyH.MarkRead)
				r.Post("/read-all", notifyH.MarkAllRead)
			})

			r.Route("/webhooks", func(r chi.Router) {
				r.Use(chain.RequirePermission(auth.PermManageOrganization))
				r.Post("/", webhookH.Create)
				r.Get("/", webhookH.List)
				r.Delete("/{webhook_id}", webhookH.Delete)
			})

			r.With(chain.RequirePermission(auth.PermViewAuditLogs)).Get("/audit-logs", auditH.List)

			// Feature surface: billing standing required past this point.
			r.Group(func(r chi.Router) {
				r.Use(billingGuard.Require)

				r.Route("/projects", func(r chi.Router) {
					r.With(chain.RequirePermission(auth.PermCreateProjects)).Post("/", scrapeH.CreateProject)
					r.With(chain.RequirePermission(auth.PermViewProjects)).Get("/", scrapeH.ListProjects)
					r.With(chain.RequirePermission(auth.PermViewProjects)).Get("/{project_id}", scrapeH.GetProject)
					r.With(chain.RequirePermission(auth.PermDeleteProjects)).Delete("/{project_id}", scrapeH.DeleteProject)
					r.With(chain.RequirePermission(auth.PermViewJurisdictions)).Get("/{project_id}/jurisdictions", scrapeH.ListJurisdictions)
				})

				r.Route("/jurisdictions", func(r chi.Router) {
					r.With(chain.RequirePermission(auth.PermCreateJurisdictions)).Post("/", scrapeH.CreateJurisdiction)
					r.With(chain.RequirePermission(auth.PermViewSources)).Get("/{jurisdiction_id}/sources", scrapeH.ListSources)
					r.With(chain.RequirePermission(auth.PermCreateSources)).Post("/{jurisdiction_id}/discover", scrapeH.DiscoverSources)
				})

				r.Route("/sources", func(r chi.Router) {
					r.With(chain.RequirePermission(auth.PermCreateSources)).Post("/", scrapeH.CreateSource)
					r.With(chain.RequirePermission(auth.PermDeleteSources)).Post("/{source_id}/deactivate", scrapeH.DeactivateSource)
					r.With(chain.RequirePermission(auth.PermTriggerScraping)).Post("/{source_id}/scrape", scrapeH.TriggerScrape)
					r.With(chain.RequirePermission(auth.PermViewRevisions)).Get("/{source_id}/revisions", scrapeH.ListRevisions)
				})

				r.With(chain.RequirePermission(auth.PermTriggerScraping)).Get("/scrape-jobs/{job_id}", scrapeH.GetJob)
				r.With(chain.RequirePermission(auth.PermViewRevisions)).Get("/revisions/{revision_id}", scrapeH.GetRevision)
				r.With(chain.RequirePermission(auth.PermViewRevisions)).Post("/search", searchH.Query)

				r.Route("/tickets", func(r chi.Router) {
					r.With(chain.RequirePermission(auth.PermCreateTickets)).Post("/", ticketH.Create)
					r.With(chain.RequirePermission(auth.PermViewTickets)).Get("/", ticketH.List)
					r.With(chain.RequirePermission(auth.PermViewTickets)).Get("/{ticket_id}", ticketH.Get)
					r.With(chain.RequirePermission(auth.PermEditTickets)).Put("/{ticket_id}", ticketH.Update)
					r.With(chain.RequirePermission(auth.PermCloseTickets)).Post("/{ticket_id}/close", ticketH.Close)
					r.With(chain.RequirePermission(auth.PermViewTickets)).Get("/{ticket_id}/comments", ticketH.ListComments)
					r.With(chain.RequireAnyPermission(auth.PermEditTickets, auth.PermCreateTickets)).Post("/{ticket_id}/comments", ticketH.AddComment)
					r.With(chain.RequirePermission(auth.PermInviteParticipants)).Post("/{ticket_id}/participants", ticketH.InviteParticipant)
					r.With(chain.RequirePermission(auth.PermRevokeParticipant)).Post("/{ticket_id}/participants/{participant_id}/revoke", ticketH.RevokeParticipant)
				})
			})
		})
	})

	return r
}
