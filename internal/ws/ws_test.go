package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/hobuy-widget/internal/hub"
	"github.com/DoyleJ11/hobuy-widget/internal/session"
	"github.com/DoyleJ11/hobuy-widget/internal/storage"
	"github.com/DoyleJ11/hobuy-widget/internal/types"
	"github.com/DoyleJ11/hobuy-widget/internal/widget"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestClient_ReadWriteAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"event":"connection-service","stage":"selection"}`))
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		_ = conn.Write(ctx, websocket.MessageText, data) // echo the bet back
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var dial session.DialFunc = Dialer
	conn, err := dial(ctx, wsURL(srv, "/"))
	require.NoError(t, err)
	defer conn.Close()

	frame, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"connection-service","stage":"selection"}`, string(frame))

	require.NoError(t, conn.Write(ctx, []byte(`{"command":"bet"}`)))
	echo, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"bet"}`, string(echo))
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, "ws://127.0.0.1:1/nope")
	assert.Error(t, err)
}

type pushFixture struct {
	srv    *httptest.Server
	widget *widget.Widget
}

func newPushFixture(t *testing.T) *pushFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, func(ctx context.Context, id string, cfg widget.Config) (*widget.Widget, error) {
		return widget.New(ctx, id, cfg, widget.Deps{
			Storage: storage.New(storage.NewMemoryBackend(), "hobuy", zap.NewNop()),
			Dial: func(context.Context, string) (session.Conn, error) {
				return nil, errors.New("offline")
			},
			Log: zap.NewNop(),
		})
	}, zap.NewNop())

	wg, err := h.Create(ctx, widget.Config{})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/widgets/{id}/ws", Handler(h, zap.NewNop()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &pushFixture{srv: srv, widget: wg}
}

func (f *pushFixture) connect(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, wsURL(f.srv, "/widgets/"+f.widget.ID()+"/ws"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// helper: read server messages until one matches
func recvMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(types.ServerMessage) bool) types.ServerMessage {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg types.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if match(msg) {
			return msg
		}
	}
}

func TestHandler_PushesViewsAndRunsCommands(t *testing.T) {
	f := newPushFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := f.connect(t, ctx)

	first := recvMessage(t, ctx, conn, func(m types.ServerMessage) bool { return m.Type == "WidgetView" })
	require.NotNil(t, first.View)
	assert.Equal(t, f.widget.ID(), first.View.ID)
	assert.Equal(t, "cart", string(first.View.Screen))

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"SetOpen","open":true}`)))
	opened := recvMessage(t, ctx, conn, func(m types.ServerMessage) bool {
		return m.Type == "WidgetView" && m.View.Cart.IsOpen
	})
	assert.Positive(t, opened.Version)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"Bid","round":1}`)))
	bid := recvMessage(t, ctx, conn, func(m types.ServerMessage) bool { return m.Type == "BidResult" })
	require.NotNil(t, bid.HadError)
	assert.True(t, *bid.HadError, "no auction is running")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{not json`)))
	bad := recvMessage(t, ctx, conn, func(m types.ServerMessage) bool { return m.Type == "Error" })
	assert.Equal(t, "bad json", bad.Error)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"Dance"}`)))
	unknown := recvMessage(t, ctx, conn, func(m types.ServerMessage) bool { return m.Type == "Error" })
	assert.Equal(t, "unknown type", unknown.Error)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"AddProduct"}`)))
	noProduct := recvMessage(t, ctx, conn, func(m types.ServerMessage) bool { return m.Type == "Error" })
	assert.Equal(t, widget.ErrNoProduct.Error(), noProduct.Error)
}

func TestHandler_UnknownWidget(t *testing.T) {
	f := newPushFixture(t)

	resp, err := http.Get(f.srv.URL + "/widgets/missing/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_WidgetCloseEndsStream(t *testing.T) {
	f := newPushFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := f.connect(t, ctx)
	_ = recvMessage(t, ctx, conn, func(m types.ServerMessage) bool { return m.Type == "WidgetView" })

	f.widget.Close()

	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
			return
		}
	}
}
