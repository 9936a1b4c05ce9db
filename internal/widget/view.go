package widget

import (
	"encoding/json"

	"github.com/DoyleJ11/hobuy-widget/internal/engine"
	"github.com/DoyleJ11/hobuy-widget/internal/i18n"
	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"github.com/shopspring/decimal"
)

// View is everything a presentation layer needs to draw the widget.
type View struct {
	ID           string        `json:"id"`
	Version      int           `json:"version"`
	Screen       engine.Screen `json:"screen"`
	DoubleScreen bool          `json:"doubleScreen"`
	Connection   string        `json:"connection"`
	SocketURL    string        `json:"socketUrl,omitempty"`
	Locale       string        `json:"locale"`

	Cart    CartView    `json:"cart"`
	Auction AuctionView `json:"auction"`

	PriceCaught bool   `json:"priceCaught"`
	Result      string `json:"result,omitempty"`
}

type CartView struct {
	IsOpen            bool            `json:"isOpen"`
	IsInfoOpen        bool            `json:"isInfoOpen"`
	IsCustomURLScreen bool            `json:"isCustomUrlScreen"`
	IsAuctionStarting bool            `json:"isAuctionStarting"`
	Currency          string          `json:"currency"`
	CustomerName      string          `json:"customerName,omitempty"`
	Items             []types.Product `json:"items"`
}

type AuctionView struct {
	Stage               types.Stage         `json:"stage,omitempty"`
	IsAuctionRunning    bool                `json:"isAuctionRunning"`
	IsFirstRoundWinner  bool                `json:"isFirstRoundWinner"`
	IsSecondRoundWinner bool                `json:"isSecondRoundWinner"`
	WinnerPrice         decimal.Decimal     `json:"winnerPrice"`
	CurrentPrice        *decimal.Decimal    `json:"currentPrice,omitempty"`
	Customer            *types.Member       `json:"customer,omitempty"`
	Competitors         []engine.Competitor `json:"competitors,omitempty"`
	HoldsTopBet         bool                `json:"holdsTopBet"`
	CountdownSeconds    int                 `json:"countdownSeconds,omitempty"`
	Error               string              `json:"error,omitempty"`
	ErrorCode           string              `json:"errorCode,omitempty"`
	ErrorEvent          types.Event         `json:"errorEvent,omitempty"`
	WinData             json.RawMessage     `json:"winData,omitempty"`
}

// View assembles the current view. Version is only set on pushed views.
func (w *Widget) View() View {
	sv := w.session.View()
	cs := w.cart.State()
	st := sv.State

	w.mu.Lock()
	caught := w.caughtRound
	w.mu.Unlock()

	v := View{
		ID:           w.id,
		Screen:       engine.ProjectScreen(st.CurrentStage, cs.IsCustomURLScreen),
		DoubleScreen: engine.IsDoubleScreen(st.CurrentStage),
		Connection:   sv.Conn.String(),
		SocketURL:    sv.URL,
		Locale:       w.i18n.Lang().String(),
		Cart: CartView{
			IsOpen:            cs.IsOpen,
			IsInfoOpen:        cs.IsInfoOpen,
			IsCustomURLScreen: cs.IsCustomURLScreen,
			IsAuctionStarting: cs.IsAuctionStarting,
			Currency:          cs.Currency,
			CustomerName:      cs.CustomerName,
			Items:             cs.Cart,
		},
		Auction: AuctionView{
			Stage:               st.CurrentStage,
			IsAuctionRunning:    st.IsAuctionRunning,
			IsFirstRoundWinner:  st.IsFirstRoundWinner,
			IsSecondRoundWinner: st.IsSecondRoundWinner,
			WinnerPrice:         st.WinnerPrice,
			Customer:            st.CurrentCustomer,
			Competitors:         engine.Competitors(st),
			HoldsTopBet:         engine.HoldsTopBet(st),
			Error:               st.Error,
			ErrorCode:           st.ErrorCode,
			ErrorEvent:          st.ErrorEvent,
			WinData:             st.WinData,
		},
		PriceCaught: caught != 0 && caught == roundOf(st.CurrentStage),
	}

	if price, ok := engine.CurrentPrice(st); ok {
		v.Auction.CurrentPrice = &price
	}
	if v.Screen == engine.ScreenPreparation {
		v.Auction.CountdownSeconds = int(engine.PreparationCountdown(st).Seconds())
	}
	if v.Screen == engine.ScreenResults {
		key := i18n.KeyResultsYouLose
		if engine.IsWinner(st) {
			key = i18n.KeyResultsYouWin
		}
		v.Result = w.i18n.T(key)
	}
	return v
}

func roundOf(stage types.Stage) int {
	switch stage {
	case types.StageFirstRound:
		return 1
	case types.StageSecondRound:
		return 2
	default:
		return 0
	}
}
