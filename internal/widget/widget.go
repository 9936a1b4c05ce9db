package widget

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/DoyleJ11/hobuy-widget/internal/cart"
	"github.com/DoyleJ11/hobuy-widget/internal/classifier"
	"github.com/DoyleJ11/hobuy-widget/internal/engine"
	"github.com/DoyleJ11/hobuy-widget/internal/host"
	"github.com/DoyleJ11/hobuy-widget/internal/i18n"
	"github.com/DoyleJ11/hobuy-widget/internal/session"
	"github.com/DoyleJ11/hobuy-widget/internal/storage"
	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

var (
	ErrNoHost         = errors.New("no host callbacks configured")
	ErrNoProduct      = errors.New("no product configured")
	ErrNoName         = errors.New("customer name is required")
	ErrNoSocketURL    = errors.New("socket url is empty")
	ErrNoWinData      = errors.New("no win data received yet")
	ErrAuctionRunning = errors.New("auction is already running")
)

// Host is the shop side of a widget.
type Host interface {
	OnStartAuction(ctx context.Context, cart []types.Product, name string) (host.StartResult, error)
	OnUseWinData(ctx context.Context, winData json.RawMessage, helpers host.Helpers) error
}

// Config is what the embedding page hands to a widget at mount.
type Config struct {
	SocketURL    string         `json:"socketUrl,omitempty"`
	Locale       string         `json:"locale,omitempty"`
	Product      *types.Product `json:"product,omitempty"`
	Currency     string         `json:"currency,omitempty"`
	CustomerName string         `json:"customerName,omitempty"`
}

type Deps struct {
	Storage        storage.Store
	Dial           session.DialFunc
	Host           Host // may be nil
	Log            *zap.Logger
	DefaultLocale  string
	SessionOptions []session.Option
}

type Widget struct {
	id      string
	product *types.Product
	host    Host
	store   storage.Store
	cart    *cart.Store
	session *session.Session
	i18n    *i18n.Registry
	log     *zap.Logger

	starts singleflight.Group

	mu          sync.Mutex
	caughtRound int
	caughtAt    int // session version when the price was caught

	watchMu  sync.Mutex
	watchers map[string]chan View
	version  int

	unsubscribeLang func()
	ctx             context.Context
	cancel          context.CancelFunc
}

// New mounts a widget: the cart is hydrated and the auction state restored from
// storage before the session starts.
func New(parent context.Context, id string, cfg Config, deps Deps) (*Widget, error) {
	registry, err := i18n.New(deps.DefaultLocale)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	log := deps.Log.Named("widget").With(zap.String("widget", id))

	w := &Widget{
		id:       id,
		product:  cfg.Product,
		host:     deps.Host,
		store:    deps.Storage,
		cart:     cart.New(deps.Storage, log),
		i18n:     registry,
		log:      log,
		watchers: make(map[string]chan View),
		ctx:      ctx,
		cancel:   cancel,
	}

	if cfg.Locale != "" {
		if err := registry.SetLang(cfg.Locale); err != nil {
			log.Warn("language is not supported", zap.String("locale", cfg.Locale), zap.Error(err))
		}
	}
	if cfg.Currency != "" {
		w.cart.Dispatch(cart.SetCurrency{Currency: cfg.Currency})
	}
	if cfg.CustomerName != "" {
		w.cart.Dispatch(cart.SetCustomerName{Name: cfg.CustomerName})
	}

	restored := classifier.Restore(deps.Storage)
	w.session = session.New(ctx, restored, deps.Dial, classifier.New(deps.Storage, log), log, deps.SessionOptions...)
	w.unsubscribeLang = registry.Subscribe(func(language.Tag) { w.notify() })

	go w.pump()

	if url := strings.TrimSpace(cfg.SocketURL); url != "" {
		w.session.Connect(url)
	}
	return w, nil
}

func (w *Widget) ID() string { return w.id }

// pump turns session snapshots into widget views for watchers.
func (w *Widget) pump() {
	for {
		out := make(chan session.Snapshot, 64)
		select {
		case w.session.Inbox() <- session.Subscribe{ID: "widget-" + w.id, Outbox: out}:
		case <-w.ctx.Done():
			return
		}

		for snap := range out {
			if snap.State.ErrorEvent == types.EventBet {
				w.dropCaughtPrice(snap.Version)
			}
			w.notify()
		}

		select {
		case <-w.ctx.Done():
			return
		case <-w.session.Done():
			return
		default:
			w.log.Warn("session dropped the widget subscription, resubscribing")
		}
	}
}

func (w *Widget) dropCaughtPrice(version int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if version > w.caughtAt {
		w.caughtRound = 0
	}
}

// AddProduct adds p, or the configured product when p is nil, and opens the widget.
func (w *Widget) AddProduct(p *types.Product) error {
	if p == nil {
		p = w.product
	}
	if p == nil {
		return ErrNoProduct
	}
	w.cart.Dispatch(cart.SetOpen{Open: true}, cart.AddToCart{Product: *p})
	w.notify()
	return nil
}

func (w *Widget) SetOpen(open bool) {
	w.cart.Dispatch(cart.SetOpen{Open: open})
	w.notify()
}

func (w *Widget) SetInfoOpen(open bool) {
	w.cart.Dispatch(cart.SetInfoOpen{Open: open})
	w.notify()
}

func (w *Widget) ToggleCustomURLScreen(on bool) {
	w.cart.Dispatch(cart.SetCustomURLScreen{On: on})
	w.notify()
}

// SetSocketURL points the session at url. An empty url disconnects.
func (w *Widget) SetSocketURL(url string) {
	w.session.Connect(url)
	w.notify()
}

func (w *Widget) SetLocale(locale string) error {
	return w.i18n.SetLang(locale)
}

// StartAuction asks the host for a session and connects to the returned address.
// Concurrent calls share one host round trip.
func (w *Widget) StartAuction(ctx context.Context, name string) error {
	if w.host == nil {
		return ErrNoHost
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNoName
	}
	if w.session.View().State.IsAuctionRunning {
		return ErrAuctionRunning
	}

	_, err, _ := w.starts.Do("start", func() (any, error) {
		w.cart.Dispatch(cart.SetAuctionStarting{Starting: true})
		w.notify()

		res, err := w.host.OnStartAuction(ctx, w.cart.State().Cart, name)

		w.cart.Dispatch(cart.SetAuctionStarting{Starting: false})
		if err != nil {
			w.log.Warn("host did not start the auction", zap.Error(err))
			w.notify()
			return nil, err
		}
		if strings.TrimSpace(res.SocketURL) == "" {
			w.notify()
			return nil, ErrNoSocketURL
		}

		w.SetSocketURL(res.SocketURL)
		return nil, nil
	})
	return err
}

// Bid places a bet for round 1 or 2 and reports whether it failed.
func (w *Widget) Bid(round int) (hadError bool) {
	bet, err := engine.NewBet(w.session.View().State, round)
	if err != nil {
		w.log.Warn("cannot build bet", zap.Int("round", round), zap.Error(err))
		return true
	}

	hadError, version := w.session.SendVersion(bet)
	if hadError {
		return true
	}

	w.mu.Lock()
	w.caughtRound = round
	w.caughtAt = version
	w.mu.Unlock()

	w.log.Debug("bet sent", zap.Stringer("bet", bet))
	w.notify()
	return false
}

// UseWinData hands the final win payload to the host.
func (w *Widget) UseWinData(ctx context.Context) error {
	if w.host == nil {
		return ErrNoHost
	}
	data := w.session.View().State.WinData
	if len(data) == 0 {
		return ErrNoWinData
	}
	return w.host.OnUseWinData(ctx, data, host.Helpers{ClearCart: w.ClearCart})
}

func (w *Widget) ClearCart() {
	w.cart.Dispatch(cart.ClearCart{})
	w.notify()
}

// ResetAuction returns the session to Disconnected and forgets the persisted auction.
// The cart survives.
func (w *Widget) ResetAuction() {
	w.session.Reset()
	_ = w.session.View() // reset is applied once the loop answers
	for _, key := range storage.AuctionKeys {
		w.store.Remove(key)
	}

	w.mu.Lock()
	w.caughtRound = 0
	w.mu.Unlock()
	w.notify()
}

// TryAgain is the results screen action: reset and fold the widget.
func (w *Widget) TryAgain() {
	w.ResetAuction()
	w.SetOpen(false)
}

func (w *Widget) Screen() engine.Screen {
	return engine.ProjectScreen(w.session.View().State.CurrentStage, w.cart.State().IsCustomURLScreen)
}

// Watch registers out for views. The current view is delivered right away. A
// watcher that falls behind is dropped and its channel closed.
func (w *Widget) Watch(id string, out chan View) {
	v := w.View()
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	if w.ctx.Err() != nil {
		close(out)
		return
	}
	w.watchers[id] = out
	select {
	case out <- v:
	default:
	}
}

func (w *Widget) Unwatch(id string) {
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	if ch, ok := w.watchers[id]; ok {
		close(ch)
		delete(w.watchers, id)
	}
}

func (w *Widget) NumWatchers() int {
	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	return len(w.watchers)
}

func (w *Widget) notify() {
	if w.ctx.Err() != nil {
		return
	}
	v := w.View()

	w.watchMu.Lock()
	defer w.watchMu.Unlock()
	w.version++
	v.Version = w.version
	for id, ch := range w.watchers {
		select {
		case ch <- v:
		default:
			close(ch)
			delete(w.watchers, id)
		}
	}
}

// Close tears the widget down. Persisted state is kept for the next mount.
func (w *Widget) Close() {
	w.unsubscribeLang()
	w.session.Close()
	w.cancel()

	w.watchMu.Lock()
	for id, ch := range w.watchers {
		close(ch)
		delete(w.watchers, id)
	}
	w.watchMu.Unlock()
}

func (w *Widget) Done() <-chan struct{} { return w.ctx.Done() }
