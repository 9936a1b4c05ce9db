package ws

import (
	"context"

	"github.com/DoyleJ11/hobuy-widget/internal/session"
	"github.com/coder/websocket"
)

const readLimit = 1 << 20

// Client is a connection to the auction server.
type Client struct {
	conn *websocket.Conn
}

var _ session.Conn = (*Client)(nil)

func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)
	return &Client{conn: conn}, nil
}

// Dialer adapts Dial to session.DialFunc.
func Dialer(ctx context.Context, url string) (session.Conn, error) {
	c, err := Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *Client) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
