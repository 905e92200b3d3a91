package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"landbid/communication"
	"landbid/communication/server"
	"landbid/gamemaster"
)

// Client talks to a match served by server.Server.
type Client struct {
	serverURL string
	http      *http.Client
}

func New(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return fmt.Errorf("server returned %s: %s", resp.Status, body.Error)
}

// Snapshot fetches the latest update.
func (c *Client) Snapshot(ctx context.Context) (gamemaster.Update, error) {
	resp, err := c.do(ctx, http.MethodGet, "/snapshot", nil)
	if err != nil {
		return gamemaster.Update{}, fmt.Errorf("get snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return gamemaster.Update{}, statusError(resp)
	}
	var u gamemaster.Update
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return gamemaster.Update{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return u, nil
}

// Prompt fetches the pending decision; ok is false when none is pending.
func (c *Client) Prompt(ctx context.Context) (p communication.Prompt, ok bool, err error) {
	resp, err := c.do(ctx, http.MethodGet, "/prompt", nil)
	if err != nil {
		return p, false, fmt.Errorf("get prompt: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent:
		return p, false, nil
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return p, false, fmt.Errorf("decode prompt: %w", err)
		}
		return p, true, nil
	default:
		return p, false, statusError(resp)
	}
}

// Choose answers the pending decision.
func (c *Client) Choose(ctx context.Context, r communication.Reply) error {
	resp, err := c.do(ctx, http.MethodPost, "/choice", r)
	if err != nil {
		return fmt.Errorf("post choice: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return statusError(resp)
	}
	return nil
}

// Watch streams events until ctx is done or the server goes away.
func (c *Client) Watch(ctx context.Context, handle func(server.Event)) error {
	url := "ws" + strings.TrimPrefix(c.serverURL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer ws.Close()

	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for {
		var e server.Event
		if err := ws.ReadJSON(&e); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		handle(e)
	}
}
