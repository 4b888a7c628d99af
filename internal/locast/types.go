package locast

import "net/http"

// Market identifies the designated market area the session is scoped to.
type Market struct {
	DMA  string `json:"DMA"`
	Name string `json:"name"`
}

// RawChannel is one station as returned by the get_epgs action, including
// its listings for the requested window.
type RawChannel struct {
	ID            int64     `json:"id"`
	CallSign      string    `json:"callSign"`
	Name          string    `json:"name"`
	Active        bool      `json:"active"`
	DMA           int       `json:"dma"`
	Affiliate     string    `json:"affiliate"`
	AffiliateName string    `json:"affiliateName"`
	LogoURL       string    `json:"logoUrl"`
	Listings      []Listing `json:"listings"`
}

// Listing is one raw programme record. Optional fields are pointers so the
// translator can distinguish an absent field from a zero value; a nil
// pointer must suppress the corresponding guide field rather than emit a
// placeholder.
type Listing struct {
	StationID     int64   `json:"stationId"`
	Title         string  `json:"title"`
	StartTime     int64   `json:"startTime"` // epoch milliseconds
	Duration      *int64  `json:"duration"`  // seconds
	IsNew         bool    `json:"isNew"`
	Rating        *string `json:"rating"`
	Genres        *string `json:"genres"` // comma-joined
	Directors     *string `json:"directors"`
	TopCast       *string `json:"topCast"`
	ReleaseYear   *int    `json:"releaseYear"`
	Description   *string `json:"description"`
	SeasonNumber  *int    `json:"seasonNumber"`
	EpisodeNumber *int    `json:"episodeNumber"`
	EpisodeTitle  *string `json:"episodeTitle"`
}

// StationDetail is the get_station response for a single station.
type StationDetail struct {
	ID        int64  `json:"id"`
	CallSign  string `json:"callSign"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	DMA       int    `json:"dma"`
	LogoURL   string `json:"logoUrl"`
	StreamURL string `json:"streamUrl"`
}

// RequestContext carries the header and cookie set for one outbound call.
// It is derived from current session state and must be rebuilt per call;
// token and market state can change between calls.
type RequestContext struct {
	Headers http.Header
	Cookies []*http.Cookie
}
