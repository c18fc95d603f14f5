package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// StatusError is an unexpected HTTP status from the gateway.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("directory gateway: status %d: %s", e.Code, e.Body)
}

// Unwrap makes every gateway status error an ErrUnavailable.
func (e *StatusError) Unwrap() error { return ErrUnavailable }

// Temporary reports whether retrying can help.
func (e *StatusError) Temporary() bool { return e.Code >= 500 }

// HTTPClient talks to a JSON gateway in front of the platform API:
//
//	GET {base}/channels/{channel}/participants?q=&offset=&limit=  -> {"participants":[...]}
//	GET {base}/channels/{channel}/participants/{user}             -> {...}
//
// 404 on lookup is ErrNotFound, 410 or a left/kicked status is ErrNotMember,
// and 429 is a RetryAfterError.
type HTTPClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPClient returns a client for baseURL. Deadlines come from the
// caller's context; Resilient sets one per attempt.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Transport: http.DefaultTransport},
	}
}

type searchResponse struct {
	Participants []json.RawMessage `json:"participants"`
}

// Search implements Directory.
func (c *HTTPClient) Search(ctx context.Context, channelID int64, filter string, offset, limit int) ([]Entity, error) {
	q := url.Values{}
	q.Set("q", filter)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	u := fmt.Sprintf("%s/channels/%d/participants?%s", c.BaseURL, channelID, q.Encode())

	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusErr(status, body)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode search page: %v", ErrUnavailable, err)
	}
	out := make([]Entity, 0, len(resp.Participants))
	for _, raw := range resp.Participants {
		e, err := decodeEntity(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Lookup implements Directory.
func (c *HTTPClient) Lookup(ctx context.Context, channelID, userID int64) (*Entity, error) {
	u := fmt.Sprintf("%s/channels/%d/participants/%d", c.BaseURL, channelID, userID)
	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusGone:
		return nil, ErrNotMember
	default:
		return nil, statusErr(status, body)
	}
	e, err := decodeEntity(body)
	if err != nil {
		return nil, err
	}
	if !e.IsMember() {
		return nil, ErrNotMember
	}
	return &e, nil
}

func (c *HTTPClient) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	res, err := c.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrUnavailable, ctxErr)
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, res.StatusCode, &RetryAfterError{After: parseRetryAfter(res.Header.Get("Retry-After"))}
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return body, res.StatusCode, nil
}

func decodeEntity(raw []byte) (Entity, error) {
	var e Entity
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entity{}, fmt.Errorf("%w: decode entity: %v", ErrUnavailable, err)
	}
	if e.ID == 0 {
		return Entity{}, fmt.Errorf("%w: entity without id", ErrUnavailable)
	}
	e.Raw = append(json.RawMessage(nil), raw...)
	return e, nil
}

func statusErr(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &StatusError{Code: code, Body: msg}
}

// parseRetryAfter accepts delta-seconds; anything else means one second.
func parseRetryAfter(v string) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return time.Second
}
