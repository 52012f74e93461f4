package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"RatePilot/internal/biz"
	"RatePilot/internal/conf"
	"RatePilot/internal/model"
	"RatePilot/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
)

// channelErrorBody is the error envelope returned by the booking channel.
type channelErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ChannelClient implements biz.ChannelClient. It POSTs rate payloads to the
// external booking channel and maps HTTP outcomes into the sync error
// taxonomy.
type ChannelClient struct {
	client *http.Client
	url    string
	apiKey string
	// credentialValid flips to false after an auth rejection so repeated
	// pushes do not hammer the channel with a known-bad key.
	credentialValid atomic.Bool
	logger          *log.Helper
}

// NewChannelClient creates the booking-channel client from sync
// configuration.
func NewChannelClient(c *conf.Sync, logger log.Logger) (*ChannelClient, error) {
	client, err := httpclient.New(c.ProxyUrl, c.RequestTimeout.AsDuration())
	if err != nil {
		return nil, fmt.Errorf("failed to create channel HTTP client: %w", err)
	}

	cc := &ChannelClient{
		client: client,
		url:    c.ChannelUrl,
		apiKey: c.ChannelApiKey,
		logger: log.NewHelper(logger),
	}
	cc.credentialValid.Store(true)
	return cc, nil
}

// PushRates POSTs one property's rates. The returned status is zero when no
// HTTP response was received.
func (c *ChannelClient) PushRates(ctx context.Context, payload *model.RatePayload) (int, error) {
	if !c.credentialValid.Load() {
		return 0, &biz.SyncError{
			Type:    biz.ErrorTypeAuth,
			Message: "channel credential was rejected earlier; update the API key before retrying",
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, &biz.SyncError{
			Type:    biz.ErrorTypeValidation,
			Message: fmt.Sprintf("failed to encode rate payload: %v", err),
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, &biz.SyncError{
			Type:    biz.ErrorTypeValidation,
			Message: fmt.Sprintf("failed to build channel request: %v", err),
			Err:     err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, biz.Classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}

	return resp.StatusCode, c.errorFromResponse(resp)
}

// InvalidateCredential drops the cached credential state after an auth
// rejection. Subsequent pushes fail fast with an auth error until the
// process is restarted with a fresh key.
func (c *ChannelClient) InvalidateCredential(ctx context.Context) {
	if c.credentialValid.CompareAndSwap(true, false) {
		c.logger.WithContext(ctx).Warn("channel credential invalidated after auth rejection")
	}
}

// errorFromResponse maps a non-2xx channel response to a tagged SyncError.
func (c *ChannelClient) errorFromResponse(resp *http.Response) *biz.SyncError {
	msg := c.readErrorMessage(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &biz.SyncError{
			Type:       biz.ErrorTypeAuth,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &biz.SyncError{
			Type:       biz.ErrorTypeValidation,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	default:
		return &biz.SyncError{
			Type:       biz.ErrorTypeAPI,
			StatusCode: resp.StatusCode,
			Message:    msg,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
}

// readErrorMessage extracts a human-readable message from the response body,
// falling back to the HTTP status text. The body read is capped at 4 KiB.
func (c *ChannelClient) readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var body channelErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms of the
// Retry-After header. Unparseable or past values yield zero.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d > 0 {
			return d
		}
	}
	return 0
}
