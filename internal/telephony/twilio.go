// Package telephony places outbound calls through the gateway's REST API
// and attaches answered calls to the media pipeline.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/observability/logging"
)

// DefaultBaseURL is the gateway's REST API root.
const DefaultBaseURL = "https://api.twilio.com/2010-04-01"

// Config holds gateway credentials and the public media endpoint the
// answered call should stream to.
type Config struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	MediaURL   string // wss://host/media
}

// Client is a thin REST client for outbound call initiation.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// New creates a telephony client. Returns nil when credentials are not
// configured; outbound calling is then disabled.
func New(cfg Config) *Client {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  logging.WithComponent("telephony"),
	}
}

type callResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PlaceCall dials the destination number. Once answered, the gateway opens
// a media stream back to this service's /media endpoint and the call enters
// the voice pipeline like any inbound call.
func (c *Client) PlaceCall(ctx context.Context, to, from string) (string, error) {
	twiml := fmt.Sprintf(
		`<Response><Connect><Stream url=%q/></Connect></Response>`, c.cfg.MediaURL)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Twiml", twiml)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.cfg.BaseURL, c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	var body callResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("gateway rejected call: status=%d message=%s", resp.StatusCode, body.Message)
	}

	c.log.Info().
		Str("callId", body.SID).
		Str("to", to).
		Str("status", body.Status).
		Msg("Outbound call placed")
	return body.SID, nil
}
