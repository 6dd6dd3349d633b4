package router

import (
	"net/http"
	"strings"

	"farmstand/internal/handler"
	"farmstand/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	cartHandler *handler.CartHandler,
	checkoutHandler *handler.CheckoutHandler,
	orderHandler *handler.OrderHandler,
	webhookHandler *handler.WebhookHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Prometheus scrape endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Product handler function
	productRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		// Check if this is a request for a specific product ID
		if r.URL.Path != "/api/products" && r.URL.Path != "/api/products/" {
			productHandler.GetByID(w, r)
			return
		}
		productHandler.GetAll(w, r)
	}

	// Register product routes (both with and without trailing slash)
	mux.HandleFunc("/api/products", productRouteHandler)
	mux.HandleFunc("/api/products/", productRouteHandler)

	// Cart routes: the bare path is the cart itself, /items are its lines
	cartRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/cart/items") {
			cartHandler.Items(w, r)
			return
		}
		if r.URL.Path == "/api/cart" || r.URL.Path == "/api/cart/" {
			cartHandler.Cart(w, r)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	}
	mux.HandleFunc("/api/cart", cartRouteHandler)
	mux.HandleFunc("/api/cart/", cartRouteHandler)

	// Checkout and the return trip from the hosted payment page
	mux.HandleFunc("/api/checkout", checkoutHandler.Checkout)
	mux.HandleFunc("/api/checkout/verify", checkoutHandler.Verify)

	// Administrative order routes
	orderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/admin/orders" || r.URL.Path == "/api/admin/orders/" {
			orderHandler.List(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/admin/orders/") {
			orderHandler.Order(w, r)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	}
	mux.HandleFunc("/api/admin/orders", orderRouteHandler)
	mux.HandleFunc("/api/admin/orders/", orderRouteHandler)

	// Payment processor webhook: authenticated by signature, not API key
	mux.HandleFunc("/webhooks/payment", webhookHandler.Handle)

	// Apply middleware in order: Recovery -> Logging -> Metrics -> CORS -> APIKeyAuth
	var h http.Handler = mux
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Metrics(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
