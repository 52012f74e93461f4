package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"RatePilot/internal/biz"
	"RatePilot/internal/conf"
	"RatePilot/internal/model"
	"RatePilot/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
)

// ComputeClient implements biz.ComputeClient against the remote
// price-computation function layer. Any non-success is retryable by default
// unless the status denotes a client-side problem.
type ComputeClient struct {
	client *http.Client
	url    string
	logger *log.Helper
}

// NewComputeClient creates the price-compute client from sync configuration.
func NewComputeClient(c *conf.Sync, logger log.Logger) (*ComputeClient, error) {
	client, err := httpclient.New(c.ProxyUrl, c.RequestTimeout.AsDuration())
	if err != nil {
		return nil, fmt.Errorf("failed to create compute HTTP client: %w", err)
	}
	return &ComputeClient{
		client: client,
		url:    c.ComputeUrl,
		logger: log.NewHelper(logger),
	}, nil
}

// ComputePrice returns the breakdown for one (property, date, nights).
func (c *ComputeClient) ComputePrice(ctx context.Context, propertyID int64, checkDate string, nights int) (*model.PriceBreakdown, error) {
	q := url.Values{}
	q.Set("property_id", strconv.FormatInt(propertyID, 10))
	q.Set("check_date", checkDate)
	q.Set("nights", strconv.Itoa(nights))

	var breakdown model.PriceBreakdown
	if err := c.getJSON(ctx, "/price", q, &breakdown); err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// ComputeCalendar returns dated breakdowns for the inclusive range in a
// single round trip.
func (c *ComputeClient) ComputeCalendar(ctx context.Context, propertyID int64, startDate, endDate string, nights int) ([]*model.PriceBreakdown, error) {
	q := url.Values{}
	q.Set("property_id", strconv.FormatInt(propertyID, 10))
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	q.Set("nights", strconv.Itoa(nights))

	var days []*model.PriceBreakdown
	if err := c.getJSON(ctx, "/calendar", q, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// getJSON performs one GET against the compute service and decodes the JSON
// response into dest.
func (c *ComputeClient) getJSON(ctx context.Context, path string, q url.Values, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path+"?"+q.Encode(), nil)
	if err != nil {
		return &biz.SyncError{
			Type:    biz.ErrorTypeValidation,
			Message: fmt.Sprintf("failed to build compute request: %v", err),
			Err:     err,
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return biz.Classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := string(raw)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
			return &biz.SyncError{Type: biz.ErrorTypeValidation, StatusCode: resp.StatusCode, Message: msg}
		}
		return &biz.SyncError{Type: biz.ErrorTypeAPI, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &biz.SyncError{
			Type:    biz.ErrorTypeAPI,
			Message: fmt.Sprintf("failed to decode compute response: %v", err),
			Err:     err,
		}
	}
	return nil
}

// CachedComputeClient decorates a ComputeClient with the pricing cache.
// Cache failures degrade to a direct compute call.
type CachedComputeClient struct {
	inner  *ComputeClient
	cache  *PricingCache
	ttl    time.Duration
	logger *log.Helper
}

// NewCachedComputeClient creates the caching decorator.
func NewCachedComputeClient(inner *ComputeClient, cache *PricingCache, c *conf.Sync, logger log.Logger) *CachedComputeClient {
	return &CachedComputeClient{
		inner:  inner,
		cache:  cache,
		ttl:    c.CacheTtl.AsDuration(),
		logger: log.NewHelper(logger),
	}
}

// ComputePrice delegates to the inner client; single-day lookups are not
// memoized, calendar fetches dominate the traffic.
func (c *CachedComputeClient) ComputePrice(ctx context.Context, propertyID int64, checkDate string, nights int) (*model.PriceBreakdown, error) {
	return c.inner.ComputePrice(ctx, propertyID, checkDate, nights)
}

// ComputeCalendar serves the range from cache when present, otherwise
// computes and stores it under the calendar key.
func (c *CachedComputeClient) ComputeCalendar(ctx context.Context, propertyID int64, startDate, endDate string, nights int) ([]*model.PriceBreakdown, error) {
	key := biz.PriceCalendarCacheKey(propertyID, startDate, endDate, nights)

	var cached []*model.PriceBreakdown
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheNotFound) {
		c.logger.Warnw("price cache read failed, recomputing",
			"key", key,
			"error", err)
	}

	days, err := c.inner.ComputeCalendar(ctx, propertyID, startDate, endDate, nights)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, days, c.ttl); err != nil {
		c.logger.Warnw("price cache write failed",
			"key", key,
			"error", err)
	}
	return days, nil
}
