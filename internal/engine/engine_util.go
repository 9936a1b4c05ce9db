package engine

import (
	"github.com/DoyleJ11/hobuy-widget/pkg/types"
)

func NewEmptyState() State {
	return State{}
}

func ContainsAction[T Action](actions []Action) bool {
	for _, a := range actions {
		if _, ok := a.(T); ok {
			return true
		}
	}
	return false
}

// SelfSessionID is our own session id, announced in the selection message.
func SelfSessionID(s State) (types.ID, bool) {
	var data types.SelectionData
	if err := s.SelectionMessage.DecodeData(&data); err != nil || data.SessionID == "" {
		return "", false
	}
	return data.SessionID, true
}

// AuctionID is the auction we were assigned to, announced in the wait-round message.
func AuctionID(s State) (types.ID, bool) {
	var data types.WaitRoundData
	if err := s.WaitRoundMessage.DecodeData(&data); err != nil || data.AuctionID == "" {
		return "", false
	}
	return data.AuctionID, true
}

func IsWinner(s State) bool {
	return s.IsFirstRoundWinner || s.IsSecondRoundWinner
}
