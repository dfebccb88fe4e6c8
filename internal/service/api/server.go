package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/service/admin"
	"github.com/vladislavdragonenkov/glowup/internal/service/cart"
	"github.com/vladislavdragonenkov/glowup/internal/service/checkout"
	"github.com/vladislavdragonenkov/glowup/internal/service/loyalty"
	"github.com/vladislavdragonenkov/glowup/internal/service/orders"
	"github.com/vladislavdragonenkov/glowup/internal/service/returns"
	"github.com/vladislavdragonenkov/glowup/internal/service/webhook"
)

// DefaultRequestTimeout ограничивает обработку одного запроса.
const DefaultRequestTimeout = 15 * time.Second

// Services перечисляет прикладные сервисы, которые обслуживает HTTP API.
type Services struct {
	Carts    *cart.Service
	Checkout *checkout.Service
	Orders   *orders.Store
	Returns  *returns.Service
	Loyalty  *loyalty.Ledger
	Admins   *admin.Allowlist
	Payments *webhook.PaymentHandler
	Refunds  *webhook.RefundHandler
}

// Config описывает настройки HTTP-слоя.
type Config struct {
	JWTSecret      string
	RequestTimeout time.Duration
	SecureCookies  bool
}

// Server обслуживает HTTP API витрины.
type Server struct {
	svc    Services
	cfg    Config
	auth   *Authenticator
	logger *log.Entry
}

// NewServer создаёт HTTP API.
func NewServer(svc Services, cfg Config, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &Server{
		svc:    svc,
		cfg:    cfg,
		auth:   NewAuthenticator(cfg.JWTSecret),
		logger: logger,
	}
}

// Routes собирает маршрутизатор.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/stripe", s.stripeWebhook)
		r.Post("/webhooks/refund", s.refundWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.identify)

			r.Get("/cart", s.getCart)
			r.Post("/cart/items", s.addCartItem)
			r.Put("/cart/items/{id}", s.updateCartItem)
			r.Delete("/cart/items/{id}", s.removeCartItem)
			r.Post("/cart/merge", s.mergeCart)

			r.Post("/checkout/intent", s.createCheckoutIntent)

			r.Get("/orders", s.listOrders)
			r.Get("/orders/{id}", s.getOrder)
			r.Put("/orders/{id}/status", s.updateOrderStatus)
			r.Get("/admin/orders", s.adminListOrders)

			r.Post("/returns", s.createReturn)
			r.Get("/returns/{id}", s.getReturn)
			r.Put("/returns/{id}/decision", s.decideReturn)

			r.Get("/loyalty/balance", s.loyaltyBalance)
			r.Get("/loyalty/transactions", s.loyaltyTransactions)
			r.Post("/loyalty/redeem", s.redeemPoints)
		})
	})

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Info("http request")
	})
}
