package ledgerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client fala com a API HTTP do ledger-service
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

type userResponse struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ResolveUser cria a conta (ou atualiza o username) e devolve o saldo atual
func (c *Client) ResolveUser(ctx context.Context, userID int64, username string, referrer *int64) (int64, error) {
	q := url.Values{}
	if username != "" {
		q.Set("username", username)
	}
	if referrer != nil {
		q.Set("ref_id", strconv.FormatInt(*referrer, 10))
	}
	target := c.BaseURL + "/user/" + strconv.FormatInt(userID, 10)
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e errorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		return 0, fmt.Errorf("ledger resolve http %d: %s %s", res.StatusCode, e.Kind, e.Message)
	}
	var out userResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode ledger response: %w", err)
	}
	return out.Balance, nil
}
