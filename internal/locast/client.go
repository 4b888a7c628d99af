// Package locast implements the client for the locast.org admin-ajax RPC
// endpoint. All operations are form-encoded POSTs against a single URL,
// discriminated by an action field. Every call is made exactly once with a
// bounded timeout; there is no retry layer, failures bubble to the caller.
package locast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/locastarr/internal/observability"
)

// Action values accepted by the RPC endpoint.
const (
	actionLogin      = "member_login"
	actionGetDMA     = "get_dma"
	actionGetEPGs    = "get_epgs"
	actionGetStation = "get_station"
)

// startTimeSuffix is the fixed sub-second/timezone suffix the endpoint
// expects on guide start times.
const startTimeSuffix = ".155-07:00"

// Client issues the outbound operations against the source endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Client for the given RPC endpoint URL. The timeout bounds
// every call; a non-positive value is rejected by config validation before
// it gets here, but a safety floor of one second is applied anyway.
func New(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout < time.Second {
		timeout = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   observability.WithComponent(logger, "locast-client"),
	}
}

// WithMetrics attaches request metrics.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	c.metrics = m
	return c
}

// Login performs the member_login action and returns the session token.
// A response without a token field is ErrLoginFailed.
func (c *Client) Login(ctx context.Context, rc RequestContext, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var resp struct {
		Token *string `json:"token"`
	}
	if err := c.post(ctx, rc, actionLogin, form, &resp); err != nil {
		return "", err
	}
	if resp.Token == nil {
		return "", ErrLoginFailed
	}
	return *resp.Token, nil
}

// LookupMarket performs the get_dma action for the given coordinates.
// A response missing either field is ErrMarketUnresolved.
func (c *Client) LookupMarket(ctx context.Context, rc RequestContext, lat, lon float64) (Market, error) {
	form := url.Values{}
	form.Set("lat", FormatCoord(lat))
	form.Set("lon", FormatCoord(lon))

	var resp struct {
		DMA  *string `json:"DMA"`
		Name *string `json:"name"`
	}
	if err := c.post(ctx, rc, actionGetDMA, form, &resp); err != nil {
		return Market{}, err
	}
	if resp.DMA == nil || resp.Name == nil {
		return Market{}, ErrMarketUnresolved
	}
	return Market{DMA: *resp.DMA, Name: *resp.Name}, nil
}

// FetchGuide performs the get_epgs action for the given market. The start
// instant is normalized to local midnight of asOf's day with the fixed
// suffix the endpoint expects. An empty channel list is a valid result.
func (c *Client) FetchGuide(ctx context.Context, rc RequestContext, dma string, asOf time.Time) ([]RawChannel, error) {
	midnight := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())

	form := url.Values{}
	form.Set("dma", dma)
	form.Set("start_time", midnight.Format("2006-01-02T15:04:05")+startTimeSuffix)

	var channels []RawChannel
	if err := c.post(ctx, rc, actionGetEPGs, form, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// ResolveStation performs the get_station action for a single station id.
// Inactive stations are returned as-is; the caller decides how to treat
// Active=false.
func (c *Client) ResolveStation(ctx context.Context, rc RequestContext, stationID int64, lat, lon float64) (StationDetail, error) {
	form := url.Values{}
	form.Set("station_id", strconv.FormatInt(stationID, 10))
	form.Set("lat", FormatCoord(lat))
	form.Set("lon", FormatCoord(lon))

	var detail StationDetail
	if err := c.post(ctx, rc, actionGetStation, form, &detail); err != nil {
		return StationDetail{}, err
	}
	return detail, nil
}

// post issues one form-encoded POST with the given action and decodes the
// JSON response into out. Network errors, non-2xx statuses, and malformed
// JSON are all wrapped as ErrSourceUnavailable.
func (c *Client) post(ctx context.Context, rc RequestContext, action string, form url.Values, out any) (err error) {
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveSourceRequest(action, err)
		}
	}()

	form.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: building %s request: %v", ErrSourceUnavailable, action, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, values := range rc.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	for _, cookie := range rc.Cookies {
		req.AddCookie(cookie)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, action, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("source call",
		slog.String("action", action),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s: unexpected status %d", ErrSourceUnavailable, action, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decoding response: %v", ErrSourceUnavailable, action, err)
	}
	return nil
}

// FormatCoord renders a coordinate the way the endpoint expects, in both
// form fields and the location cookie.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
