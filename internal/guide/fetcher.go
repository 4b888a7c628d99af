package guide

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/locastarr/internal/locast"
	"github.com/jmylchreest/locastarr/internal/session"
)

// ErrMarketUnscoped indicates a guide or station request was attempted
// before the session's market was resolved.
var ErrMarketUnscoped = errors.New("guide: session market not resolved")

// Fetcher couples the source client with the session manager: every call
// obtains fresh request context so it is always authenticated with current
// state.
type Fetcher struct {
	client   *locast.Client
	sessions *session.Manager
	loc      *time.Location
	now      func() time.Time
}

// NewFetcher creates a Fetcher. loc determines the day the guide window
// starts on; nil means the process-local zone.
func NewFetcher(client *locast.Client, sessions *session.Manager, loc *time.Location) *Fetcher {
	if loc == nil {
		loc = time.Local
	}
	return &Fetcher{
		client:   client,
		sessions: sessions,
		loc:      loc,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// FetchGuide retrieves the raw channel list for the session's market,
// starting at local midnight of today. An empty list is a valid result.
func (f *Fetcher) FetchGuide(ctx context.Context) ([]locast.RawChannel, error) {
	dma := f.sessions.DMA()
	if dma == "" {
		return nil, ErrMarketUnscoped
	}

	channels, err := f.client.FetchGuide(ctx, f.sessions.RequestContext(), dma, f.now().In(f.loc))
	if err != nil {
		return nil, fmt.Errorf("fetching guide: %w", err)
	}
	return channels, nil
}

// ResolveStation resolves one station to its stream detail using the
// session's coordinates. A station that resolves but is not broadcasting
// returns locast.ErrStationInactive.
func (f *Fetcher) ResolveStation(ctx context.Context, stationID int64) (locast.StationDetail, error) {
	lat, lon := f.sessions.Coordinates()

	detail, err := f.client.ResolveStation(ctx, f.sessions.RequestContext(), stationID, lat, lon)
	if err != nil {
		return locast.StationDetail{}, fmt.Errorf("resolving station %d: %w", stationID, err)
	}
	if !detail.Active {
		return locast.StationDetail{}, fmt.Errorf("station %d: %w", stationID, locast.ErrStationInactive)
	}
	return detail, nil
}
