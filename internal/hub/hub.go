package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/hobuy-widget/internal/widget"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("hub is shut down")

// Factory mounts one widget. It runs on the hub goroutine.
type Factory func(ctx context.Context, id string, cfg widget.Config) (*widget.Widget, error)

type HubMsg interface{ isHubMsg() }

type Result struct {
	Widget *widget.Widget
	Err    error
}

// CreateWidget mounts a widget under a fresh id.
type CreateWidget struct {
	Config widget.Config
	Reply  chan Result
}

type GetWidget struct {
	ID    string
	Reply chan *widget.Widget
}

// EnsureWidget returns the widget with ID, mounting it with Config when missing.
type EnsureWidget struct {
	ID     string
	Config widget.Config // only used if creation happens
	Reply  chan Result
}

type RemoveWidget struct {
	ID string
}

type ShutdownHub struct{}

func (CreateWidget) isHubMsg() {}
func (GetWidget) isHubMsg()    {}
func (EnsureWidget) isHubMsg() {}
func (RemoveWidget) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Hub struct {
	inbox   chan HubMsg
	widgets map[string]*widget.Widget
	factory Factory
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, factory Factory, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		widgets: make(map[string]*widget.Widget),
		factory: factory,
		log:     log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateWidget:
				id := uuid.NewString()
				for h.widgets[id] != nil {
					h.log.Warn("collision on widget id, regenerating", zap.String("id", id))
					id = uuid.NewString()
				}
				msg.Reply <- h.mount(id, msg.Config)

			case GetWidget:
				msg.Reply <- h.widgets[msg.ID] // May be nil

			case EnsureWidget:
				if w := h.widgets[msg.ID]; w != nil {
					msg.Reply <- Result{Widget: w}
					break
				}
				msg.Reply <- h.mount(msg.ID, msg.Config)

			case RemoveWidget:
				if w := h.widgets[msg.ID]; w != nil {
					w.Close()
					delete(h.widgets, msg.ID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) mount(id string, cfg widget.Config) Result {
	w, err := h.factory(h.ctx, id, cfg)
	if err != nil {
		h.log.Error("failed to mount widget", zap.String("id", id), zap.Error(err))
		return Result{Err: err}
	}
	h.widgets[id] = w
	h.log.Info("widget mounted", zap.String("id", id))
	return Result{Widget: w}
}

func (h *Hub) shutdown() {
	for _, w := range h.widgets {
		w.Close()
	}
	clear(h.widgets)
	h.cancel()
}

// Create is a blocking helper around CreateWidget.
func (h *Hub) Create(ctx context.Context, cfg widget.Config) (*widget.Widget, error) {
	reply := make(chan Result, 1)
	select {
	case h.inbox <- CreateWidget{Config: cfg, Reply: reply}:
	case <-h.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.Widget, res.Err
	case <-h.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get is a blocking helper around GetWidget. It returns nil when the widget is unknown.
func (h *Hub) Get(ctx context.Context, id string) *widget.Widget {
	reply := make(chan *widget.Widget, 1)
	select {
	case h.inbox <- GetWidget{ID: id, Reply: reply}:
	case <-h.ctx.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
	select {
	case w := <-reply:
		return w
	case <-h.ctx.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
}

// Remove unmounts the widget with id. Unknown ids are ignored.
func (h *Hub) Remove(ctx context.Context, id string) error {
	select {
	case h.inbox <- RemoveWidget{ID: id}:
		return nil
	case <-h.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }
