package session

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/DoyleJ11/hobuy-widget/internal/classifier"
	"github.com/DoyleJ11/hobuy-widget/internal/engine"
	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("websocket is not connected")

// Conn is one live connection to the auction server.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

type ConnState int

const (
	Disconnected ConnState = iota // no target address
	Open
	Closed // address known, connection torn down
)

func (c ConnState) String() string {
	switch c {
	case Disconnected:
		return "disconnected"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

type Msg interface{ isSessionMsg() }

// Connect points the session at a new address. An empty URL only tears down.
type Connect struct{ URL string }

// Send encodes Message and writes it.
type Send struct {
	Message any
	Reply   chan SendResult
}

// SendResult reports a send. Version is the state version right after the send, so
// any later snapshot carries a higher one.
type SendResult struct {
	HadError bool
	Version  int
}

type Reset struct{}

type GetState struct {
	Reply chan View
}

type Subscribe struct {
	ID     string
	Outbox chan Snapshot // where this subscriber wants to receive snapshots
}

type Unsubscribe struct{ ID string }

type Shutdown struct{}

type inbound struct {
	gen   int
	frame []byte
}

type connLost struct {
	gen int
	err error
}

func (Connect) isSessionMsg()     {}
func (Send) isSessionMsg()        {}
func (Reset) isSessionMsg()       {}
func (GetState) isSessionMsg()    {}
func (Subscribe) isSessionMsg()   {}
func (Unsubscribe) isSessionMsg() {}
func (Shutdown) isSessionMsg()    {}
func (inbound) isSessionMsg()     {}
func (connLost) isSessionMsg()    {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version        int
	NumSubscribers int
	URL            string
	Conn           ConnState
	State          engine.State
}

// Session owns the single auction connection of one widget. All state transitions run
// on the loop goroutine.
type Session struct {
	inbox       chan Msg
	state       engine.State
	version     int
	subscribers map[string]chan Snapshot

	dial       DialFunc
	classifier *classifier.Classifier
	log        *zap.Logger

	dialTimeout  time.Duration
	writeTimeout time.Duration

	url        string
	conn       Conn
	gen        int
	connCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Session)

func WithDialTimeout(d time.Duration) Option {
	return func(s *Session) { s.dialTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Session) { s.writeTimeout = d }
}

func New(parent context.Context, initial engine.State, dial DialFunc, c *classifier.Classifier, log *zap.Logger, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:        make(chan Msg, 64),
		state:        initial,
		subscribers:  make(map[string]chan Snapshot),
		dial:         dial,
		classifier:   c,
		log:          log.Named("session"),
		dialTimeout:  5 * time.Second,
		writeTimeout: 3 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.loop()
	return s
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Connect:
				s.connect(strings.TrimSpace(msg.URL))

			case inbound:
				if msg.gen != s.gen || s.conn == nil {
					break // frame from a connection we already dropped
				}
				s.handleFrame(msg.frame)

			case connLost:
				if msg.gen != s.gen || s.conn == nil {
					break
				}
				// No reconnect: the server decides whether the auction survives.
				s.log.Warn("connection lost", zap.String("url", s.url), zap.Error(msg.err))
				s.closeConn()

			case Send:
				hadError := s.send(msg.Message)
				msg.Reply <- SendResult{HadError: hadError, Version: s.version}

			case Reset:
				s.apply(engine.Reset{})
				s.closeConn()
				s.url = ""

			case GetState:
				msg.Reply <- s.view()

			case Subscribe:
				s.subscribers[msg.ID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: s.version, State: s.state}

			case Unsubscribe:
				if ch, ok := s.subscribers[msg.ID]; ok {
					close(ch)
					delete(s.subscribers, msg.ID)
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) connect(url string) {
	if url == s.url && s.conn != nil {
		return
	}
	s.closeConn()
	s.url = url
	if url == "" {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.dialTimeout)
	conn, err := s.dial(ctx, url)
	cancel()
	if err != nil {
		s.log.Error("failed to connect", zap.String("url", url), zap.Error(err))
		return
	}

	s.gen++
	connCtx, connCancel := context.WithCancel(s.ctx)
	s.conn = conn
	s.connCancel = connCancel
	s.log.Info("connected", zap.String("url", url), zap.Int("gen", s.gen))
	go s.readLoop(connCtx, s.gen, conn)
}

func (s *Session) readLoop(ctx context.Context, gen int, conn Conn) {
	for {
		frame, err := conn.Read(ctx)
		if err != nil {
			s.post(ctx, connLost{gen: gen, err: err})
			return
		}
		s.post(ctx, inbound{gen: gen, frame: frame})
	}
}

func (s *Session) post(ctx context.Context, m Msg) {
	select {
	case s.inbox <- m:
	case <-ctx.Done():
	}
}

func (s *Session) handleFrame(frame []byte) {
	msg, err := types.ParseInbound(frame)
	if err != nil {
		s.log.Debug("discarding undecodable frame", zap.Error(err))
		return
	}

	res := s.classifier.Classify(s.state, msg)
	s.apply(res.Actions...)

	if res.Terminal {
		s.closeConn()
	}
}

// send reports whether the send failed. The error triple is cleared only after a
// successful write.
func (s *Session) send(message any) bool {
	if s.conn == nil {
		s.log.Error("send failed", zap.Error(ErrNotConnected))
		return true
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.log.Error("failed to encode message", zap.Error(err))
		return true
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.writeTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, payload); err != nil {
		s.log.Error("failed to write message", zap.Error(err))
		return true
	}

	s.apply(engine.ResetError{})
	return false
}

func (s *Session) apply(actions ...engine.Action) {
	next := engine.ReduceAll(s.state, actions)
	if reflect.DeepEqual(next, s.state) {
		return
	}
	s.state = next
	s.version++
	s.broadcast(Snapshot{Version: s.version, State: s.state})
}

// closeConn is idempotent.
func (s *Session) closeConn() {
	if s.connCancel != nil {
		s.connCancel()
		s.connCancel = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Debug("close failed", zap.Error(err))
		}
		s.conn = nil
	}
}

func (s *Session) view() View {
	v := View{
		Version:        s.version,
		NumSubscribers: len(s.subscribers),
		URL:            s.url,
		State:          s.state,
	}
	switch {
	case s.conn != nil:
		v.Conn = Open
	case s.url != "":
		v.Conn = Closed
	default:
		v.Conn = Disconnected
	}
	return v
}

func (s *Session) shutdown() {
	s.closeConn()
	for id, ch := range s.subscribers {
		close(ch) // Tell subscriber no more snapshots
		delete(s.subscribers, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.subscribers {
		select {
		case ch <- snap:
			//ok
		default:
			// Subscriber is slow/full - drop them.
			close(ch)
			delete(s.subscribers, id)
		}
	}
}

// Expose the inbox so tests or the widget layer can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Connect(url string) { s.post(s.ctx, Connect{URL: url}) }

func (s *Session) Reset() { s.post(s.ctx, Reset{}) }

func (s *Session) Close() { s.post(s.ctx, Shutdown{}) }

// Send returns true when the message could not be sent.
func (s *Session) Send(message any) bool {
	hadError, _ := s.SendVersion(message)
	return hadError
}

// SendVersion is Send that also returns the state version the send left behind.
func (s *Session) SendVersion(message any) (hadError bool, version int) {
	reply := make(chan SendResult, 1)
	select {
	case s.inbox <- Send{Message: message, Reply: reply}:
	case <-s.ctx.Done():
		return true, 0
	}
	select {
	case res := <-reply:
		return res.HadError, res.Version
	case <-s.ctx.Done():
		return true, 0
	}
}

func (s *Session) View() View {
	reply := make(chan View, 1)
	select {
	case s.inbox <- GetState{Reply: reply}:
	case <-s.ctx.Done():
		return View{}
	}
	select {
	case v := <-reply:
		return v
	case <-s.ctx.Done():
		return View{}
	}
}

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }
