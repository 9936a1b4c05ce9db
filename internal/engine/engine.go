package engine

import (
	"encoding/json"

	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"github.com/shopspring/decimal"
)

type State struct {
	IsAuctionRunning    bool
	IsFirstRoundWinner  bool
	IsSecondRoundWinner bool
	WinnerPrice         decimal.Decimal
	CurrentStage        types.Stage
	CurrentCustomer     *types.Member

	SelectionMessage *types.InboundMessage
	WaitRoundMessage *types.InboundMessage
	RoundStepMessage *types.InboundMessage
	SelfBetMessage   *types.InboundMessage

	Error      string
	ErrorCode  string
	ErrorEvent types.Event

	WinData json.RawMessage
}

type Action interface{ isAction() }

type SetCurrentStage struct{ Stage types.Stage }

type SetSelectionMessage struct{ Msg types.InboundMessage }

type SetWaitRoundMessage struct{ Msg types.InboundMessage }

type SetRoundMessage struct{ Msg types.InboundMessage }

type SetFirstRoundWinner struct {
	Won   bool
	Price decimal.Decimal
}

type SetSecondRoundWinner struct {
	Won   bool
	Price decimal.Decimal
}

type SetSelfBet struct{ Msg types.InboundMessage }

type SetError struct {
	Err   string
	Code  string
	Event types.Event
}

// SetWinData is accepted even after round one has been won.
type SetWinData struct{ Data json.RawMessage }

type ResetError struct{}

// Reset is a lifecycle action, never produced from server traffic, and is honoured
// in a frozen state too.
type Reset struct{}

func (SetCurrentStage) isAction()      {}
func (SetSelectionMessage) isAction()  {}
func (SetWaitRoundMessage) isAction()  {}
func (SetRoundMessage) isAction()      {}
func (SetFirstRoundWinner) isAction()  {}
func (SetSecondRoundWinner) isAction() {}
func (SetSelfBet) isAction()           {}
func (SetError) isAction()             {}
func (SetWinData) isAction()           {}
func (ResetError) isAction()           {}
func (Reset) isAction()                {}

// Reduce applies a single action. It never fails: unknown actions and actions
// arriving after a first-round win leave the state untouched.
func Reduce(s State, a Action) State {
	if !Accepts(s, a) {
		return s
	}

	switch act := a.(type) {
	case SetCurrentStage:
		s.CurrentStage = act.Stage

	case SetSelectionMessage:
		msg := act.Msg
		s.SelectionMessage = &msg
		s.IsAuctionRunning = true

	case SetWaitRoundMessage:
		msg := act.Msg
		s.CurrentCustomer = currentCustomer(s, msg)
		s.WaitRoundMessage = &msg

	case SetRoundMessage:
		msg := act.Msg
		s.RoundStepMessage = &msg

	case SetFirstRoundWinner:
		s.IsFirstRoundWinner = act.Won
		s.WinnerPrice = act.Price

	case SetSecondRoundWinner:
		s.IsSecondRoundWinner = act.Won
		s.WinnerPrice = act.Price

	case SetSelfBet:
		msg := act.Msg
		s.SelfBetMessage = &msg

	case SetError:
		s.Error = act.Err
		s.ErrorCode = act.Code
		s.ErrorEvent = act.Event

	case SetWinData:
		s.WinData = act.Data
		s.CurrentStage = types.StageResults

	case ResetError:
		s.Error, s.ErrorCode, s.ErrorEvent = "", "", ""

	case Reset:
		return NewEmptyState()
	}

	return s
}

// Accepts reports whether Reduce would apply a to s. A first-round winner is frozen
// except for win data and a full reset.
func Accepts(s State, a Action) bool {
	return !s.IsFirstRoundWinner || passesFreeze(a)
}

func passesFreeze(a Action) bool {
	switch a.(type) {
	case SetWinData, Reset:
		return true
	}
	return false
}

// ReduceAll folds actions left to right.
func ReduceAll(s State, actions []Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

// currentCustomer finds our own roster entry in a wait-round message, falling back to
// the previously known customer when we are not listed.
func currentCustomer(s State, msg types.InboundMessage) *types.Member {
	selfID, ok := SelfSessionID(s)
	if !ok {
		return s.CurrentCustomer
	}

	var data types.WaitRoundData
	if err := msg.DecodeData(&data); err != nil {
		return s.CurrentCustomer
	}

	for _, m := range data.Members {
		if m.SessionID == selfID {
			member := m
			return &member
		}
	}
	return s.CurrentCustomer
}
