package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DoyleJ11/hobuy-widget/internal/hub"
	"github.com/DoyleJ11/hobuy-widget/internal/i18n"
	"github.com/DoyleJ11/hobuy-widget/internal/types"
	"github.com/DoyleJ11/hobuy-widget/internal/widget"
	ptypes "github.com/DoyleJ11/hobuy-widget/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type widgetKey struct{}

type handlers struct {
	hub *hub.Hub
	log *zap.Logger
}

func (h *handlers) CreateWidget(w http.ResponseWriter, r *http.Request) {
	var req types.CreateWidgetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
	}

	wg, err := h.hub.Create(r.Context(), req.Config)
	if err != nil {
		h.log.Error("failed to create widget", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create widget")
		return
	}
	writeJSON(w, http.StatusCreated, types.CreateWidgetResponse{ID: wg.ID()})
}

// loadWidget resolves {id} for every widget route.
func (h *handlers) loadWidget(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wg := h.hub.Get(r.Context(), chi.URLParam(r, "id"))
		if wg == nil {
			writeError(w, http.StatusNotFound, "widget not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), widgetKey{}, wg)))
	})
}

func widgetFrom(r *http.Request) *widget.Widget {
	return r.Context().Value(widgetKey{}).(*widget.Widget)
}

func (h *handlers) GetWidget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, widgetFrom(r).View())
}

func (h *handlers) DeleteWidget(w http.ResponseWriter, r *http.Request) {
	if err := h.hub.Remove(r.Context(), widgetFrom(r).ID()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddToCart adds the product in the body, or the configured one for an empty body.
func (h *handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var p *ptypes.Product
	if r.ContentLength != 0 {
		p = new(ptypes.Product)
		if err := json.NewDecoder(r.Body).Decode(p); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
	}

	wg := widgetFrom(r)
	if err := wg.AddProduct(p); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wg.View())
}

func (h *handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	wg := widgetFrom(r)
	wg.ClearCart()
	writeJSON(w, http.StatusOK, wg.View())
}

func (h *handlers) toggle(set func(*widget.Widget, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ToggleRequest
		if !decode(w, r, &req) {
			return
		}
		wg := widgetFrom(r)
		set(wg, req.Open)
		writeJSON(w, http.StatusOK, wg.View())
	}
}

func (h *handlers) SetSocketURL(w http.ResponseWriter, r *http.Request) {
	var req types.SocketURLRequest
	if !decode(w, r, &req) {
		return
	}
	wg := widgetFrom(r)
	wg.SetSocketURL(req.SocketURL)
	writeJSON(w, http.StatusOK, wg.View())
}

func (h *handlers) SetLocale(w http.ResponseWriter, r *http.Request) {
	var req types.LocaleRequest
	if !decode(w, r, &req) {
		return
	}
	wg := widgetFrom(r)
	if err := wg.SetLocale(req.Locale); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wg.View())
}

func (h *handlers) StartAuction(w http.ResponseWriter, r *http.Request) {
	var req types.StartAuctionRequest
	if !decode(w, r, &req) {
		return
	}
	wg := widgetFrom(r)
	if err := wg.StartAuction(r.Context(), req.Name); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, wg.View())
}

func (h *handlers) Bid(w http.ResponseWriter, r *http.Request) {
	var req types.BidRequest
	if !decode(w, r, &req) {
		return
	}
	hadError := widgetFrom(r).Bid(req.Round)
	status := http.StatusOK
	if hadError {
		status = http.StatusConflict
	}
	writeJSON(w, status, types.BidResponse{HadError: hadError})
}

func (h *handlers) ResetAuction(w http.ResponseWriter, r *http.Request) {
	wg := widgetFrom(r)
	wg.ResetAuction()
	writeJSON(w, http.StatusOK, wg.View())
}

func (h *handlers) UseWinData(w http.ResponseWriter, r *http.Request) {
	wg := widgetFrom(r)
	if err := wg.UseWinData(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wg.View())
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, widget.ErrNoProduct), errors.Is(err, widget.ErrNoName), errors.Is(err, i18n.ErrUnsupported):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, widget.ErrAuctionRunning), errors.Is(err, widget.ErrNoWinData):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, widget.ErrNoHost):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		h.log.Warn("host call failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
