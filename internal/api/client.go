package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sharetube/synctube/internal/protocol"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUnexpected   = errors.New("unexpected response")
)

type Health struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

// Client talks to the REST side of a room server. BaseURL is the prefix the
// server is mounted under, e.g. http://host/sync.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{baseURL: u, httpClient: httpClient}, nil
}

// WSURL returns the websocket endpoint of a room.
func (c *Client) WSURL(roomID string) string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u = *u.JoinPath("ws", roomID)

	return u.String()
}

func (c *Client) endpoint(elem ...string) string {
	return c.baseURL.JoinPath(append([]string{"api"}, elem...)...).String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrRoomNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpected, method, endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	var resp struct {
		RoomID string `json:"room_id"`
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint("rooms"), &resp); err != nil {
		return "", err
	}
	if resp.RoomID == "" {
		return "", fmt.Errorf("%w: empty room id", ErrUnexpected)
	}

	return resp.RoomID, nil
}

// CheckRoom returns ErrRoomNotFound when the room does not exist.
func (c *Client) CheckRoom(ctx context.Context, roomID string) (*protocol.RoomInfo, error) {
	var info protocol.RoomInfo
	if err := c.do(ctx, http.MethodGet, c.endpoint("rooms", roomID), &info); err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, ErrRoomNotFound
	}

	return &info, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]protocol.RoomSummary, error) {
	var rooms []protocol.RoomSummary
	if err := c.do(ctx, http.MethodGet, c.endpoint("rooms"), &rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (c *Client) Search(ctx context.Context, query string) ([]protocol.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	endpoint := c.endpoint("search") + "?" + url.Values{"q": {query}}.Encode()
	var results []protocol.SearchResult
	if err := c.do(ctx, http.MethodGet, endpoint, &results); err != nil {
		return nil, err
	}

	return results, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, c.endpoint("health"), &h); err != nil {
		return nil, err
	}

	return &h, nil
}
