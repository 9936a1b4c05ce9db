package types

import (
	"github.com/DoyleJ11/hobuy-widget/internal/widget"
	ptypes "github.com/DoyleJ11/hobuy-widget/pkg/types"
)

// ClientMessage is a command sent by the presentation layer over the push socket.
type ClientMessage struct {
	Type    string          `json:"type"`
	Round   int             `json:"round,omitempty"`
	Open    *bool           `json:"open,omitempty"`
	Product *ptypes.Product `json:"product,omitempty"`
}

type ServerMessage struct {
	Type     string       `json:"type"` // "WidgetView" | "BidResult" | "Error"
	Version  int          `json:"version,omitempty"`
	View     *widget.View `json:"view,omitempty"`
	HadError *bool        `json:"hadError,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type CreateWidgetRequest struct {
	widget.Config
}

type CreateWidgetResponse struct {
	ID string `json:"id"`
}

type ToggleRequest struct {
	Open bool `json:"open"`
}

type SocketURLRequest struct {
	SocketURL string `json:"socketUrl"`
}

type LocaleRequest struct {
	Locale string `json:"locale"`
}

type StartAuctionRequest struct {
	Name string `json:"name"`
}

type BidRequest struct {
	Round int `json:"round"`
}

type BidResponse struct {
	HadError bool `json:"hadError"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
