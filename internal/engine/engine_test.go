package engine

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"github.com/shopspring/decimal"
)

func msg(t *testing.T, event types.Event, stage types.Stage, data any) types.InboundMessage {
	t.Helper()
	m := types.InboundMessage{Event: event, Stage: stage}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal data: %v", err)
		}
		m.Data = raw
	}
	return m
}

func selection(t *testing.T, sessionID string) types.InboundMessage {
	return msg(t, types.EventConnectionService, types.StageSelection, map[string]any{
		"sessionId": sessionID, "price": 100, "currency": "USD",
		"products": []map[string]any{{"id": "p1", "name": "Mug", "price": 100}},
	})
}

func waitRound(t *testing.T, auctionID string, members ...string) types.InboundMessage {
	roster := make([]map[string]any, 0, len(members))
	for _, id := range members {
		roster = append(roster, map[string]any{"sessionId": id, "name": "name-" + id})
	}
	return msg(t, types.EventConnectionAuction, types.StageWaitFirstRound, map[string]any{
		"auctionId": auctionID, "members": roster,
	})
}

func TestSelectionMessageStartsAuction(t *testing.T) {
	m := selection(t, "s1")
	s := ReduceAll(NewEmptyState(), []Action{
		SetCurrentStage{Stage: m.Stage},
		SetSelectionMessage{Msg: m},
	})

	if !s.IsAuctionRunning {
		t.Fatalf("expected auction running")
	}
	if s.CurrentStage != types.StageSelection {
		t.Fatalf("stage: got %q, want selection", s.CurrentStage)
	}
	if s.SelectionMessage == nil || s.SelectionMessage.Event != types.EventConnectionService {
		t.Fatalf("selection message not stored: %+v", s.SelectionMessage)
	}
}

func TestFirstRoundWinFreezesState(t *testing.T) {
	s := Reduce(NewEmptyState(), SetSelectionMessage{Msg: selection(t, "s1")})
	s = Reduce(s, SetCurrentStage{Stage: types.StageFirstRound})
	s = Reduce(s, SetFirstRoundWinner{Won: true, Price: decimal.NewFromInt(80)})

	frozen := s
	later := []Action{
		SetCurrentStage{Stage: types.StageSecondRound},
		SetRoundMessage{Msg: msg(t, types.EventStep, types.StageSecondRound, map[string]any{"price": 70})},
		SetSecondRoundWinner{Won: true, Price: decimal.NewFromInt(60)},
		SetError{Err: "boom", Code: "E1", Event: types.EventBet},
		SetSelfBet{Msg: msg(t, types.EventSelfWinBet, types.StageSecondRound, map[string]any{"memberId": "s2"})},
		ResetError{},
	}

	for _, a := range later {
		if Accepts(s, a) {
			t.Fatalf("frozen state must not accept %T", a)
		}
		s = Reduce(s, a)
		if !reflect.DeepEqual(s, frozen) {
			t.Fatalf("state changed after %T: got %+v", a, s)
		}
	}

	if !s.IsFirstRoundWinner || !s.WinnerPrice.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("winner data lost: %+v", s)
	}

	s = Reduce(s, SetWinData{Data: json.RawMessage(`{"price":80}`)})
	if s.CurrentStage != types.StageResults {
		t.Fatalf("win data must force results, got %q", s.CurrentStage)
	}
	if string(s.WinData) != `{"price":80}` {
		t.Fatalf("win data not recorded: %s", s.WinData)
	}
}

func TestResetReturnsInitialState(t *testing.T) {
	cases := []struct {
		name    string
		actions []Action
	}{
		{name: "empty", actions: nil},
		{
			name: "mid auction",
			actions: []Action{
				SetSelectionMessage{Msg: selection(t, "s1")},
				SetWaitRoundMessage{Msg: waitRound(t, "a1", "s1", "s2")},
				SetCurrentStage{Stage: types.StageSecondRound},
				SetError{Err: "late", Code: "E2", Event: types.EventBet},
			},
		},
		{
			name: "frozen first round winner",
			actions: []Action{
				SetSelectionMessage{Msg: selection(t, "s1")},
				SetFirstRoundWinner{Won: true, Price: decimal.NewFromInt(80)},
			},
		},
		{
			name: "second round winner",
			actions: []Action{
				SetSecondRoundWinner{Won: true, Price: decimal.NewFromInt(55)},
				SetWinData{Data: json.RawMessage(`{}`)},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Reduce(ReduceAll(NewEmptyState(), tc.actions), Reset{})
			if !reflect.DeepEqual(s, NewEmptyState()) {
				t.Fatalf("reset: got %+v", s)
			}
		})
	}
}

func TestCurrentCustomerRetainedWhenMissingFromRoster(t *testing.T) {
	s := Reduce(NewEmptyState(), SetSelectionMessage{Msg: selection(t, "s1")})
	s = Reduce(s, SetWaitRoundMessage{Msg: waitRound(t, "a1", "s1", "s2")})
	if s.CurrentCustomer == nil || s.CurrentCustomer.SessionID != "s1" {
		t.Fatalf("customer not derived: %+v", s.CurrentCustomer)
	}

	second := waitRound(t, "a1", "s2", "s3")
	second.Event = types.EventChangeMembers
	s = Reduce(s, SetWaitRoundMessage{Msg: second})

	if s.CurrentCustomer == nil || s.CurrentCustomer.Name != "name-s1" {
		t.Fatalf("customer should be retained, got %+v", s.CurrentCustomer)
	}
	if s.WaitRoundMessage.Event != types.EventChangeMembers {
		t.Fatalf("wait round message must be overwritten")
	}
}

func TestErrorTripleSetAndCleared(t *testing.T) {
	s := Reduce(NewEmptyState(), SetError{Err: "too late", Code: "LATE", Event: types.EventBet})
	if s.Error != "too late" || s.ErrorCode != "LATE" || s.ErrorEvent != types.EventBet {
		t.Fatalf("error triple: %+v", s)
	}
	s = Reduce(s, ResetError{})
	if s.Error != "" || s.ErrorCode != "" || s.ErrorEvent != "" {
		t.Fatalf("error triple not cleared: %+v", s)
	}
}

func TestProjectScreen(t *testing.T) {
	cases := []struct {
		stage     types.Stage
		customURL bool
		want      Screen
	}{
		{types.StageResults, false, ScreenResults},
		{types.StageSecondRound, false, ScreenSecondRound},
		{types.StageFirstRound, false, ScreenFirstRound},
		{types.StageWaitFirstRound, false, ScreenPreparation},
		{types.StageWaitSecondRound, false, ScreenPreparation},
		{types.StageSelection, false, ScreenCart},
		{types.StageCart, false, ScreenCart},
		{types.StageNone, false, ScreenCart},
		{types.Stage("bogus"), false, ScreenCart},
		{types.StageFirstRound, true, ScreenCustomURL},
	}

	for _, tc := range cases {
		if got := ProjectScreen(tc.stage, tc.customURL); got != tc.want {
			t.Fatalf("ProjectScreen(%q, %v): got %q, want %q", tc.stage, tc.customURL, got, tc.want)
		}
	}
}

func TestNewBet(t *testing.T) {
	s := Reduce(NewEmptyState(), SetSelectionMessage{Msg: selection(t, "s1")})

	if _, err := NewBet(s, 1); !errors.Is(err, ErrNoAuction) {
		t.Fatalf("want ErrNoAuction, got %v", err)
	}

	s = Reduce(s, SetWaitRoundMessage{Msg: waitRound(t, "a9", "s1")})
	if _, err := NewBet(s, 3); !errors.Is(err, ErrInvalidRound) {
		t.Fatalf("want ErrInvalidRound, got %v", err)
	}

	bet, err := NewBet(s, 2)
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	want := types.Bet{Command: "bet", AuctionID: "a9", Round: 2, SessionID: "s1"}
	if bet != want {
		t.Fatalf("got %+v, want %+v", bet, want)
	}

	raw, err := json.Marshal(bet)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back types.Bet
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != bet {
		t.Fatalf("round trip: got %+v, want %+v", back, bet)
	}
}

func TestCompetitorsExcludeSelfAndUnknown(t *testing.T) {
	s := Reduce(NewEmptyState(), SetSelectionMessage{Msg: selection(t, "s1")})
	s = Reduce(s, SetWaitRoundMessage{Msg: waitRound(t, "a1", "s1", "s2", "s3")})
	s = Reduce(s, SetRoundMessage{Msg: msg(t, types.EventStep, types.StageSecondRound, map[string]any{
		"price":  90,
		"others": map[string]any{"s1": 90, "s2": 85, "s3": 70, "ghost": 60},
	})})
	s = Reduce(s, SetSelfBet{Msg: msg(t, types.EventSelfWinBet, types.StageSecondRound, map[string]any{"memberId": "s3"})})

	got := Competitors(s)
	if len(got) != 2 {
		t.Fatalf("want 2 competitors, got %+v", got)
	}
	if got[0].Member.SessionID != "s2" || !got[0].Price.Equal(decimal.NewFromInt(85)) || got[0].TopBid {
		t.Fatalf("unexpected first competitor %+v", got[0])
	}
	if got[1].Member.SessionID != "s3" || !got[1].TopBid {
		t.Fatalf("unexpected second competitor %+v", got[1])
	}
	if HoldsTopBet(s) {
		t.Fatalf("s3 holds the bet, not us")
	}

	price, ok := CurrentPrice(s)
	if !ok || !price.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("current price: %v %v", price, ok)
	}
}

func TestPreparationCountdown(t *testing.T) {
	s := NewEmptyState()
	if got := PreparationCountdown(s); got != DefaultPreparationCountdown {
		t.Fatalf("fallback: got %v", got)
	}

	s = Reduce(s, SetWaitRoundMessage{Msg: msg(t, types.EventConnectionAuction, types.StageWaitFirstRound, map[string]any{
		"auctionId": 1, "members": []any{}, "duration": 12,
	})})
	if got := PreparationCountdown(s); got != 12*time.Second {
		t.Fatalf("duration: got %v", got)
	}
	if id, ok := AuctionID(s); !ok || id != "1" {
		t.Fatalf("numeric auction id should decode, got %q", id)
	}
}

func TestAcceptsWinDataAndResetWhenFrozen(t *testing.T) {
	s := Reduce(NewEmptyState(), SetFirstRoundWinner{Won: true, Price: decimal.NewFromInt(80)})

	if !Accepts(s, SetWinData{Data: json.RawMessage(`{}`)}) || !Accepts(s, Reset{}) {
		t.Fatalf("win data and reset pass the freeze")
	}
	if !Accepts(NewEmptyState(), SetCurrentStage{Stage: types.StageSecondRound}) {
		t.Fatalf("unfrozen state accepts everything")
	}
}
