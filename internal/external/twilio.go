package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// twilioAPIBase is the default Twilio REST API base URL.
// Overridable in tests via TwilioClientConfig.BaseURL.
const twilioAPIBase = "https://api.twilio.com"

// Twilio error codes that mean the recipient itself is unreachable rather
// than the gateway being broken.
const (
	twilioErrInvalidTo       = 21211
	twilioErrUnsubscribed    = 21610
	twilioErrNotMobile       = 21614
	twilioErrRegionForbidden = 21408
)

// TwilioClientConfig holds the configuration for creating a TwilioClient.
type TwilioClientConfig struct {
	AccountSID string
	AuthToken  types.SecretString
	BaseURL    string // Override for testing; defaults to twilioAPIBase
	Logger     *slog.Logger
}

// TwilioClient implements types.SMSSender against the Twilio Programmable
// Messaging REST API through BaseClient.
type TwilioClient struct {
	base       *BaseClient
	accountSID string
	authToken  types.SecretString
	baseURL    string
	logger     *slog.Logger
}

// NewTwilioClient creates a TwilioClient. Sends are never retried: the
// dispatcher reports a failed outcome instead of risking a duplicate text.
// The httpClient timeout bounds a single gateway call.
func NewTwilioClient(httpClient *http.Client, cfg TwilioClientConfig) *TwilioClient {
	base := NewBaseClient(
		httpClient,
		"twilio",
		NoRetryPolicy(),
		"FenceAlerts/1.0",
	)
	return NewTwilioClientWithBase(base, cfg)
}

// NewTwilioClientWithBase creates a TwilioClient with a pre-configured
// BaseClient.
func NewTwilioClientWithBase(base *BaseClient, cfg TwilioClientConfig) *TwilioClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = twilioAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TwilioClient{
		base:       base,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
	}
}

// twilioMessageResponse is the subset of the Message resource we read.
type twilioMessageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// twilioErrorResponse is the JSON error body returned by Twilio.
type twilioErrorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// Send creates a Message resource and returns its SID.
//
// Error mapping:
//   - 400 with a recipient error code -> types.ErrCodeSMSRecipientRejected
//   - 429 / 5xx -> handled by BaseClient (ErrCodeUpstreamRateLimited / ErrCodeUpstreamUnavailable)
//   - Other non-2xx -> types.ErrCodeUpstreamSMSProvider
func (c *TwilioClient) Send(ctx context.Context, msg types.SMSMessage) (string, error) {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", msg.From)
	form.Set("Body", msg.Body)

	reqURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Twilio message request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return "", c.wrapTwilioError("Send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", c.handleErrorResponse(resp, "Send")
	}

	var out twilioMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewAppError(
			types.ErrCodeUpstreamSMSProvider,
			"Send: failed to decode Twilio response",
			err,
		)
	}

	c.logger.DebugContext(ctx, "twilio message created", "sid", out.SID, "status", out.Status)
	return out.SID, nil
}

// Ping fetches the account resource to confirm the credentials work. It is
// used as a health probe.
func (c *TwilioClient) Ping(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create Twilio account request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return c.wrapTwilioError("Ping", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp, "Ping")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *TwilioClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamSMSProvider,
			fmt.Sprintf("%s: Twilio returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	var twErr twilioErrorResponse
	msg := string(body)
	if jsonErr := json.Unmarshal(body, &twErr); jsonErr == nil && twErr.Message != "" {
		msg = twErr.Message
	}

	return c.mapTwilioError(operation, resp.StatusCode, twErr.Code, msg)
}

func (c *TwilioClient) mapTwilioError(operation string, statusCode, code int, message string) error {
	details := map[string]any{"status": statusCode}
	if code != 0 {
		details["twilio_code"] = code
	}

	switch {
	case statusCode == http.StatusBadRequest && isRecipientError(code):
		return types.NewAppErrorWithDetails(
			types.ErrCodeSMSRecipientRejected,
			fmt.Sprintf("%s: Twilio rejected recipient: %s", operation, message),
			nil,
			details,
		)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamSMSProvider,
			fmt.Sprintf("%s: Twilio authentication failed: %s", operation, message),
			nil,
			details,
		)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamSMSProvider,
			fmt.Sprintf("%s: Twilio error (%d): %s", operation, statusCode, message),
			nil,
			details,
		)
	}
}

func isRecipientError(code int) bool {
	switch code {
	case twilioErrInvalidTo, twilioErrUnsubscribed, twilioErrNotMobile, twilioErrRegionForbidden:
		return true
	}
	return false
}

// wrapTwilioError passes BaseClient AppErrors through and wraps anything else.
func (c *TwilioClient) wrapTwilioError(operation string, err error) error {
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamSMSProvider,
		fmt.Sprintf("%s: Twilio request failed: %v", operation, err),
		err,
	)
}

// Compile-time assertions.
var (
	_ types.SMSSender = (*TwilioClient)(nil)
	_ HealthPinger    = (*TwilioClient)(nil)
)
