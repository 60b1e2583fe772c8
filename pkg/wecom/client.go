// pkg/wecom/client.go
package wecom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// tokenSafetyMargin expires cached tokens early so a token is never
	// used within five minutes of its server-side expiry.
	tokenSafetyMargin = 5 * time.Minute

	// callTimeout bounds each API call independently of the scan context.
	callTimeout = 10 * time.Second

	defaultButtonText = "View task"
)

// Client implements PushService against the WeCom message API. The access
// token cache lives on the client; refresh is serialized behind the mutex
// so concurrent sends never fetch redundant tokens.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

// NewClient creates a new WeCom client
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://qyapi.weixin.qq.com"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: callTimeout,
		},
		logger: logger.With().Str("component", "wecom").Logger(),
	}
}

// IsConfigured reports whether the full credential triple is present.
func (c *Client) IsConfigured() bool {
	return c.config.CorpID != "" && c.config.AgentID != "" && c.config.Secret != ""
}

type tokenResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type sendResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type cardMessage struct {
	ToUser  string   `json:"touser"`
	MsgType string   `json:"msgtype"`
	AgentID int      `json:"agentid"`
	Card    textCard `json:"textcard"`
}

type textCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ButtonText  string `json:"btntxt"`
}

// getAccessToken returns the cached token, refreshing it when it is within
// the safety margin of expiry.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiresAt.Add(-tokenSafetyMargin)) {
		return c.token, nil
	}

	tokenURL := fmt.Sprintf("%s/cgi-bin/gettoken?corpid=%s&corpsecret=%s",
		c.config.BaseURL,
		url.QueryEscape(c.config.CorpID),
		url.QueryEscape(c.config.Secret),
	)

	var result tokenResponse
	if err := c.doJSON(ctx, http.MethodGet, tokenURL, nil, &result); err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	if result.ErrCode != 0 {
		return "", fmt.Errorf("fetching access token: errcode %d: %s", result.ErrCode, result.ErrMsg)
	}

	c.token = result.AccessToken
	c.tokenExpiresAt = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	c.logger.Debug().Time("expires_at", c.tokenExpiresAt).Msg("access token refreshed")

	return c.token, nil
}

// SendCard sends a textcard message to a WeCom user.
func (c *Client) SendCard(ctx context.Context, toUser string, card Card) error {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return err
	}

	agentID, err := strconv.Atoi(c.config.AgentID)
	if err != nil {
		return fmt.Errorf("invalid WeCom agent id %q: %w", c.config.AgentID, err)
	}

	if card.ButtonText == "" {
		card.ButtonText = defaultButtonText
	}

	sendURL := fmt.Sprintf("%s/cgi-bin/message/send?access_token=%s",
		c.config.BaseURL, url.QueryEscape(token))

	msg := cardMessage{
		ToUser:  toUser,
		MsgType: "textcard",
		AgentID: agentID,
		Card: textCard{
			Title:       card.Title,
			Description: card.Description,
			URL:         card.URL,
			ButtonText:  card.ButtonText,
		},
	}

	var result sendResponse
	if err := c.doJSON(ctx, http.MethodPost, sendURL, msg, &result); err != nil {
		return fmt.Errorf("sending card message: %w", err)
	}
	if result.ErrCode != 0 {
		// 40014 / 42001: the cached token went invalid server-side;
		// drop it so the next send fetches a fresh one.
		if result.ErrCode == 40014 || result.ErrCode == 42001 {
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
		}
		return fmt.Errorf("sending card message: errcode %d: %s", result.ErrCode, result.ErrMsg)
	}

	c.logger.Debug().Str("to_user", toUser).Str("title", card.Title).Msg("card message sent")
	return nil
}

// doJSON performs a request with an optional JSON body and decodes the
// JSON response.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	return nil
}
