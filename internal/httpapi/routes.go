package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/hobuy-widget/internal/hub"
	"github.com/DoyleJ11/hobuy-widget/internal/widget"
	"github.com/DoyleJ11/hobuy-widget/internal/ws"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	hs := &handlers{hub: h, log: log.Named("http")}
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Post("/widgets", hs.CreateWidget)

	r.Route("/widgets/{id}", func(r chi.Router) {
		r.Use(hs.loadWidget)

		r.Get("/", hs.GetWidget)
		r.Delete("/", hs.DeleteWidget)

		r.Post("/cart", hs.AddToCart)
		r.Delete("/cart", hs.ClearCart)

		r.Put("/open", hs.toggle((*widget.Widget).SetOpen))
		r.Put("/info", hs.toggle((*widget.Widget).SetInfoOpen))
		r.Put("/custom-url", hs.toggle((*widget.Widget).ToggleCustomURLScreen))
		r.Put("/socket-url", hs.SetSocketURL)
		r.Put("/locale", hs.SetLocale)

		r.Post("/auction", hs.StartAuction)
		r.Post("/bids", hs.Bid)
		r.Post("/reset", hs.ResetAuction)
		r.Post("/win", hs.UseWinData)

		r.Get("/ws", ws.Handler(h, log))
	})
	return r
}
