package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

// Auction server -> widget
//   { event, stage?, data?, error?, errorCode? }
//
// Widget -> auction server
//   { command: "bet", auctionId, round: 1|2, sessionId }

var ErrNoData = errors.New("message has no data")

type Event string

const (
	EventConnectionService Event = "connection-service"
	EventConnectionAuction Event = "connection-auction"
	EventChangeMembers     Event = "change-members"
	EventStart             Event = "start"
	EventStep              Event = "step"
	EventYouWin            Event = "you-win"
	EventNotWin            Event = "not-win"
	EventOtherWin          Event = "other-win"
	EventSelfWinBet        Event = "selfWinBet"
	EventStoreWinData      Event = "store-win-data"
	EventBet               Event = "bet"
)

type Stage string

const (
	StageNone            Stage = ""
	StageSelection       Stage = "selection"
	StageWaitFirstRound  Stage = "waitFirstRound"
	StageFirstRound      Stage = "firstRound"
	StageWaitSecondRound Stage = "waitSecondRound"
	StageSecondRound     Stage = "secondRound"

	// Client-only stages.
	StageCart    Stage = "cart"
	StageResults Stage = "results"
)

// Known reports whether s is one of the server or client-only stages.
func (s Stage) Known() bool {
	switch s {
	case StageSelection, StageWaitFirstRound, StageFirstRound,
		StageWaitSecondRound, StageSecondRound, StageCart, StageResults:
		return true
	}
	return false
}

// ID is an identifier the server may encode either as a JSON string or a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

type InboundMessage struct {
	Event     Event           `json:"event"`
	Stage     Stage           `json:"stage,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"errorCode,omitempty"`
}

// DecodeData unmarshals the message payload into dst.
func (m *InboundMessage) DecodeData(dst any) error {
	if m == nil || len(m.Data) == 0 || bytes.Equal(m.Data, []byte("null")) {
		return ErrNoData
	}
	return json.Unmarshal(m.Data, dst)
}

// ParseInbound decodes a raw text frame.
func ParseInbound(frame []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return InboundMessage{}, err
	}
	return msg, nil
}

type Product struct {
	ID       ID              `json:"id"`
	Name     string          `json:"name,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

type Member struct {
	SessionID ID        `json:"sessionId"`
	Name      string    `json:"name,omitempty"`
	Location  string    `json:"location,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Products  []Product `json:"products,omitempty"`
}

// SelectionData is the payload of connection-service/selection.
type SelectionData struct {
	SessionID ID              `json:"sessionId"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency,omitempty"`
	Products  []Product       `json:"products,omitempty"`
}

// WaitRoundData is the payload of connection-auction and change-members.
// Duration is the preparation countdown in seconds, zero when the server omits it.
type WaitRoundData struct {
	AuctionID ID       `json:"auctionId"`
	Members   []Member `json:"members"`
	Duration  int      `json:"duration,omitempty"`
}

// RoundStepData is the payload of start and step. Others maps member session ids to
// their current price.
type RoundStepData struct {
	Price  decimal.Decimal            `json:"price"`
	Others map[string]decimal.Decimal `json:"others,omitempty"`
}

type SelfBetData struct {
	MemberID ID `json:"memberId"`
}

type PriceData struct {
	Price decimal.Decimal `json:"price"`
}

const CommandBet = "bet"

// Bet is the only outbound command.
type Bet struct {
	Command   string `json:"command"`
	AuctionID ID     `json:"auctionId"`
	Round     int    `json:"round"`
	SessionID ID     `json:"sessionId"`
}

func (b Bet) String() string {
	return b.Command + " auction=" + string(b.AuctionID) + " round=" + strconv.Itoa(b.Round) + " session=" + string(b.SessionID)
}
