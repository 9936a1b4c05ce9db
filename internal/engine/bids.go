package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"github.com/shopspring/decimal"
)

var ErrNoAuction = errors.New("no auction assigned yet")
var ErrNoSession = errors.New("no session id announced yet")
var ErrInvalidRound = errors.New("round must be 1 or 2")

// DefaultPreparationCountdown applies when a wait-round message carries no duration.
const DefaultPreparationCountdown = 30 * time.Second

func NewBet(s State, round int) (types.Bet, error) {
	if round != 1 && round != 2 {
		return types.Bet{}, fmt.Errorf("%w: got %d", ErrInvalidRound, round)
	}

	auctionID, ok := AuctionID(s)
	if !ok {
		return types.Bet{}, ErrNoAuction
	}
	sessionID, ok := SelfSessionID(s)
	if !ok {
		return types.Bet{}, ErrNoSession
	}

	return types.Bet{
		Command:   types.CommandBet,
		AuctionID: auctionID,
		Round:     round,
		SessionID: sessionID,
	}, nil
}

type Competitor struct {
	Member types.Member    `json:"member"`
	Price  decimal.Decimal `json:"price"`
	TopBid bool            `json:"topBid"`
}

// Competitors joins the round step's price map with the roster. Our own entry and ids
// missing from the roster are left out. Results are ordered by session id.
func Competitors(s State) []Competitor {
	var step types.RoundStepData
	if err := s.RoundStepMessage.DecodeData(&step); err != nil {
		return nil
	}
	var wait types.WaitRoundData
	if err := s.WaitRoundMessage.DecodeData(&wait); err != nil {
		return nil
	}

	selfID, _ := SelfSessionID(s)
	roster := make(map[types.ID]types.Member, len(wait.Members))
	for _, m := range wait.Members {
		if m.SessionID == selfID {
			continue
		}
		roster[m.SessionID] = m
	}

	top, _ := TopBidder(s)
	out := make([]Competitor, 0, len(step.Others))
	for id, price := range step.Others {
		m, ok := roster[types.ID(id)]
		if !ok {
			continue
		}
		out = append(out, Competitor{Member: m, Price: price, TopBid: top != "" && top == m.SessionID})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Member.SessionID < out[j].Member.SessionID })
	return out
}

// CurrentPrice is the price announced by the latest round step.
func CurrentPrice(s State) (decimal.Decimal, bool) {
	var step types.RoundStepData
	if err := s.RoundStepMessage.DecodeData(&step); err != nil {
		return decimal.Decimal{}, false
	}
	return step.Price, true
}

// TopBidder is the member currently holding the active bid in round two.
func TopBidder(s State) (types.ID, bool) {
	var data types.SelfBetData
	if err := s.SelfBetMessage.DecodeData(&data); err != nil || data.MemberID == "" {
		return "", false
	}
	return data.MemberID, true
}

// HoldsTopBet reports whether our current customer holds the active bid.
func HoldsTopBet(s State) bool {
	top, ok := TopBidder(s)
	if !ok || s.CurrentCustomer == nil {
		return false
	}
	return top == s.CurrentCustomer.SessionID
}

func PreparationCountdown(s State) time.Duration {
	var data types.WaitRoundData
	if err := s.WaitRoundMessage.DecodeData(&data); err != nil || data.Duration <= 0 {
		return DefaultPreparationCountdown
	}
	return time.Duration(data.Duration) * time.Second
}
