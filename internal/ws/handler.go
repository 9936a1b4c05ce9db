package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/hobuy-widget/internal/hub"
	"github.com/DoyleJ11/hobuy-widget/internal/types"
	"github.com/DoyleJ11/hobuy-widget/internal/widget"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Handler streams widget views to a presentation client and accepts its commands.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "missing widget id", http.StatusBadRequest)
			return
		}

		wg := h.Get(r.Context(), id)
		if wg == nil {
			http.Error(w, "widget not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan widget.View, 8)
		clientID := uuid.NewString()

		wg.Watch(clientID, out)
		defer wg.Unwatch(clientID)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		replies := make(chan types.ServerMessage, 8)
		go func() {
			defer writeCancel()
			for {
				var msg types.ServerMessage
				select {
				case v, ok := <-out:
					if !ok {
						// Dropped as a slow watcher or the widget closed.
						conn.Close(websocket.StatusGoingAway, "widget closed")
						return
					}
					msg = types.ServerMessage{Type: "WidgetView", Version: v.Version, View: &v}
				case msg = <-replies:
				case <-writeCtx.Done():
					return
				}
				if err := write(writeCtx, conn, msg); err != nil {
					log.Debug("write failed", zap.String("client", clientID), zap.Error(err))
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.String("client", clientID), zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				reply(writeCtx, replies, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			if res, ok := apply(r.Context(), wg, cm); ok {
				if res.Type != "" {
					reply(writeCtx, replies, res)
				}
			} else {
				reply(writeCtx, replies, types.ServerMessage{Type: "Error", Error: "unknown type"})
			}
		}
	}
}

// apply runs one client command. Commands that only change the view reply through
// the next pushed view.
func apply(ctx context.Context, wg *widget.Widget, m types.ClientMessage) (types.ServerMessage, bool) {
	switch m.Type {
	case "Bid":
		hadError := wg.Bid(m.Round)
		return types.ServerMessage{Type: "BidResult", HadError: &hadError}, true
	case "AddProduct":
		if err := wg.AddProduct(m.Product); err != nil {
			return types.ServerMessage{Type: "Error", Error: err.Error()}, true
		}
	case "SetOpen":
		wg.SetOpen(m.Open != nil && *m.Open)
	case "SetInfoOpen":
		wg.SetInfoOpen(m.Open != nil && *m.Open)
	case "ToggleCustomURL":
		wg.ToggleCustomURLScreen(m.Open != nil && *m.Open)
	case "ResetAuction":
		wg.ResetAuction()
	case "TryAgain":
		wg.TryAgain()
	case "UseWinData":
		if err := wg.UseWinData(ctx); err != nil {
			return types.ServerMessage{Type: "Error", Error: err.Error()}, true
		}
	default:
		return types.ServerMessage{}, false
	}
	return types.ServerMessage{}, true
}

func reply(ctx context.Context, replies chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case replies <- msg:
	case <-ctx.Done():
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
