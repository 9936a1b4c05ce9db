package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/hobuy-widget/pkg/types"
	"go.uber.org/zap"
	"resty.dev/v3"
)

var ErrEmptyResult = errors.New("shop returned no socket url")

// StartResult is what the shop answers when it opens an auction session.
type StartResult struct {
	SocketURL string `json:"socketUrl"`
}

// Helpers are handed to the shop together with the win data.
type Helpers struct {
	ClearCart func()
}

type startRequest struct {
	Cart []types.Product `json:"cart"`
	Name string          `json:"name"`
}

type winRequest struct {
	WinData json.RawMessage `json:"winData"`
}

type winResponse struct {
	ClearCart bool `json:"clearCart"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to the shop backend that owns auction sessions and purchases.
type Client struct {
	client *resty.Client
	log    *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{client: c, log: log.Named("host")}
}

func (c *Client) Close() error { return c.client.Close() }

// OnStartAuction asks the shop to open a session for cart and returns the auction
// server address.
func (c *Client) OnStartAuction(ctx context.Context, cart []types.Product, name string) (StartResult, error) {
	var out StartResult
	var apiErr apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(startRequest{Cart: cart, Name: name}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/auctions")
	if err != nil {
		return StartResult{}, fmt.Errorf("start auction: %w", err)
	}
	if resp.IsError() {
		return StartResult{}, fmt.Errorf("start auction: %s: %s", resp.Status(), apiErr.Error)
	}
	if out.SocketURL == "" {
		return StartResult{}, ErrEmptyResult
	}

	c.log.Info("auction session opened", zap.Int("items", len(cart)))
	return out, nil
}

// OnUseWinData forwards the final win payload. The shop may ask for the auction cart
// to be cleared once the purchase is recorded.
func (c *Client) OnUseWinData(ctx context.Context, winData json.RawMessage, helpers Helpers) error {
	var out winResponse
	var apiErr apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(winRequest{WinData: winData}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/auctions/win")
	if err != nil {
		return fmt.Errorf("use win data: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("use win data: %s: %s", resp.Status(), apiErr.Error)
	}

	if out.ClearCart && helpers.ClearCart != nil {
		helpers.ClearCart()
	}
	return nil
}
