package classifier

import (
	"encoding/json"
	"errors"

	"github.com/DoyleJ11/hobuy-widget/internal/engine"
	"github.com/DoyleJ11/hobuy-widget/internal/storage"
	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ErrorRecord struct {
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Event     types.Event `json:"event,omitempty"`
}

type WinnerRecord struct {
	IsWinner bool            `json:"isWinner"`
	Price    decimal.Decimal `json:"price"`
}

// Result is what one inbound message turns into. Terminal means the auction is over:
// persisted recovery state is already wiped and the caller must close the connection.
type Result struct {
	Actions  []engine.Action
	Terminal bool
}

type Classifier struct {
	store storage.Store
	log   *zap.Logger
}

func New(store storage.Store, log *zap.Logger) *Classifier {
	return &Classifier{store: store, log: log.Named("classifier")}
}

// Classify evaluates every rule in order against msg. Several rules may fire for the
// same message. Each action the reducer would accept on top of current is also
// written through to the store, so a restored state matches the live one.
func (c *Classifier) Classify(current engine.State, msg types.InboundMessage) Result {
	var res Result
	add := func(a engine.Action, key string, value any) {
		res.Actions = append(res.Actions, a)
		if key != "" && engine.Accepts(current, a) {
			c.store.Set(key, value)
		}
		current = engine.Reduce(current, a)
	}

	if msg.Stage.Known() {
		add(engine.SetCurrentStage{Stage: msg.Stage}, storage.KeyCurrentStage, msg.Stage)
	}

	if msg.Error != "" || msg.ErrorCode != "" {
		rec := ErrorRecord{Error: msg.Error, ErrorCode: msg.ErrorCode, Event: msg.Event}
		add(engine.SetError{Err: rec.Error, Code: rec.ErrorCode, Event: rec.Event}, storage.KeyError, rec)
	}

	if msg.Event == types.EventConnectionService && msg.Stage == types.StageSelection {
		add(engine.SetSelectionMessage{Msg: msg}, storage.KeySelectionMessage, msg)
	}

	if isWaitRound(msg) {
		add(engine.SetWaitRoundMessage{Msg: msg}, storage.KeyWaitRoundMessage, msg)
	}

	if msg.Event == types.EventStart || msg.Event == types.EventStep {
		add(engine.SetRoundMessage{Msg: msg}, storage.KeyRoundMessage, msg)
	}

	if msg.Event == types.EventSelfWinBet && msg.Stage == types.StageSecondRound {
		add(engine.SetSelfBet{Msg: msg}, storage.KeySelfBet, msg)
	}

	if msg.Event == types.EventYouWin && msg.Stage == types.StageFirstRound {
		rec := WinnerRecord{IsWinner: true, Price: c.price(msg)}
		add(engine.SetFirstRoundWinner{Won: true, Price: rec.Price}, storage.KeyFirstRoundWinner, rec)
	}

	if msg.Event == types.EventYouWin && msg.Stage == types.StageSecondRound {
		rec := WinnerRecord{IsWinner: true, Price: c.price(msg)}
		add(engine.SetSecondRoundWinner{Won: true, Price: rec.Price}, storage.KeySecondRoundWinner, rec)
	}

	if isFinal(msg) {
		add(engine.SetCurrentStage{Stage: types.StageResults}, "", nil)
		c.store.Clear()
		res.Terminal = true
		c.log.Info("auction finished", zap.String("event", string(msg.Event)))
	}

	if msg.Event == types.EventStoreWinData {
		data := msg.Data
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		add(engine.SetWinData{Data: data}, storage.KeyWinData, data)
	}

	return res
}

func isWaitRound(msg types.InboundMessage) bool {
	if msg.Event == types.EventChangeMembers {
		return true
	}
	return msg.Event == types.EventConnectionAuction &&
		(msg.Stage == types.StageWaitFirstRound || msg.Stage == types.StageWaitSecondRound)
}

func isFinal(msg types.InboundMessage) bool {
	if msg.Stage != types.StageSecondRound {
		return false
	}
	switch msg.Event {
	case types.EventOtherWin, types.EventYouWin, types.EventNotWin:
		return true
	}
	return false
}

// price reads data.price, defaulting to zero when absent or malformed.
func (c *Classifier) price(msg types.InboundMessage) decimal.Decimal {
	var data types.PriceData
	if err := msg.DecodeData(&data); err != nil {
		if !errors.Is(err, types.ErrNoData) {
			c.log.Warn("bad win payload", zap.String("event", string(msg.Event)), zap.Error(err))
		}
		return decimal.Decimal{}
	}
	return data.Price
}
