package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/koekemoer93/kart-force-sub000/api/controllers"
	"github.com/koekemoer93/kart-force-sub000/api/middleware"
	"github.com/koekemoer93/kart-force-sub000/internal/inventory"
	"github.com/koekemoer93/kart-force-sub000/internal/staff"
	supplyrequest "github.com/koekemoer93/kart-force-sub000/internal/supplyrequests"
	"github.com/koekemoer93/kart-force-sub000/pkg/config"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	"github.com/koekemoer93/kart-force-sub000/pkg/logger"
	"github.com/koekemoer93/kart-force-sub000/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	Redis            *redis.Client
	Health           map[string]controllers.Pinger
	Metrics          prometheus.Gatherer
	StaffService     staff.Service
	InventoryService inventory.Service
	RequestService   supplyrequest.Service
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.Health))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		p.Config.AuthRateLimit.LoginWindow,
		p.Config.AuthRateLimit.LoginIPLimit,
		p.Config.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/api/v1/auth", func(r chi.Router) {
		login := controllers.StaffLogin(p.StaffService, p.Logger)
		if p.Redis != nil {
			r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, p.Logger)).Post("/login", login)
		} else {
			r.Post("/login", login)
		}
	})

	adminOnly := middleware.RequireRole(string(enums.StaffRoleAdmin), p.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, p.Logger))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ListItems(p.InventoryService, p.Logger))
			r.With(adminOnly).Post("/", controllers.CreateItem(p.InventoryService, p.Logger))
			r.Get("/{itemId}", controllers.GetItem(p.InventoryService, p.Logger))
			r.Get("/{itemId}/movements", controllers.ListMovements(p.InventoryService, p.Logger))
			r.With(adminOnly).Post("/{itemId}/receive", controllers.ReceiveStock(p.InventoryService, p.Logger))
			r.With(adminOnly).Post("/{itemId}/issue", controllers.IssueStock(p.InventoryService, p.Logger))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", controllers.ListRequests(p.RequestService, p.Logger))
			r.Post("/", controllers.CreateRequest(p.RequestService, p.Logger))
			r.Get("/{requestId}", controllers.GetRequest(p.RequestService, p.Logger))
			r.With(adminOnly).Post("/{requestId}/approve", controllers.ApproveRequest(p.RequestService, p.Logger))
			r.With(adminOnly).Post("/{requestId}/unapprove", controllers.UnapproveRequest(p.RequestService, p.Logger))
			r.With(adminOnly).Post("/{requestId}/dispatch", controllers.DispatchRequest(p.RequestService, p.Logger))
			r.Post("/{requestId}/cancel", controllers.CancelRequest(p.RequestService, p.Logger))
		})
	})

	return r
}
