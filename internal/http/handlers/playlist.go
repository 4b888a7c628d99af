// Package handlers provides HTTP handlers for the locastarr API.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jmylchreest/locastarr/internal/guide"
	"github.com/jmylchreest/locastarr/internal/locast"
	"github.com/jmylchreest/locastarr/pkg/m3u"
)

const playlistContentType = "application/x-mpegurl"

// PlaylistHandler serves M3U playlists built from the live channel lineup.
type PlaylistHandler struct {
	fetcher *guide.Fetcher
	logger  *slog.Logger
}

// NewPlaylistHandler creates a new playlist handler.
func NewPlaylistHandler(fetcher *guide.Fetcher) *PlaylistHandler {
	return &PlaylistHandler{
		fetcher: fetcher,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *PlaylistHandler) WithLogger(logger *slog.Logger) *PlaylistHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// RegisterRoutes registers the playlist routes.
// Routes:
//   - GET /locast - Full lineup playlist, entries pointing back at /station/{id}
//   - GET /station/{stationID} - Single-entry playlist with the station's stream URL
func (h *PlaylistHandler) RegisterRoutes(router *chi.Mux) {
	router.Get("/locast", h.servePlaylist)
	router.Get("/station/{stationID}", h.serveStation)
}

// servePlaylist fetches the current lineup and renders it as an M3U
// playlist of active stations. A source outage degrades to an empty
// playlist rather than an error response, so downstream players keep a
// valid document.
func (h *PlaylistHandler) servePlaylist(w http.ResponseWriter, r *http.Request) {
	channels, err := h.fetcher.FetchGuide(r.Context())
	if err != nil {
		if errors.Is(err, locast.ErrSourceUnavailable) || errors.Is(err, guide.ErrMarketUnscoped) {
			h.logger.Warn("playlist degraded to empty: lineup unavailable",
				slog.String("error", err.Error()),
			)
			channels = nil
		} else {
			h.logger.Error("failed to fetch lineup", slog.String("error", err.Error()))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	origin := requestOrigin(r)

	w.Header().Set("Content-Type", playlistContentType)
	writer := m3u.NewWriter(w)
	if err := writer.WriteHeader(); err != nil {
		h.logger.Error("failed to write playlist", slog.String("error", err.Error()))
		return
	}

	for _, ch := range channels {
		if !ch.Active {
			continue
		}
		entry := &m3u.Entry{
			Duration: -1,
			TvgID:    guide.ChannelID(ch.ID),
			TvgName:  ch.CallSign,
			TvgLogo:  ch.LogoURL,
			Title:    ch.CallSign,
			URL:      fmt.Sprintf("%s/station/%d", origin, ch.ID),
		}
		if err := writer.WriteEntry(entry); err != nil {
			h.logger.Error("failed to write playlist entry",
				slog.Int64("station_id", ch.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	}
}

// serveStation resolves one station and returns a single-entry playlist
// pointing at its stream URL. Inactive and unresolvable stations are 404:
// to a player both mean the same thing, the channel cannot be tuned.
func (h *PlaylistHandler) serveStation(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "stationID")
	stationID, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		http.Error(w, "invalid station id", http.StatusBadRequest)
		return
	}

	detail, err := h.fetcher.ResolveStation(r.Context(), stationID)
	if err != nil {
		h.logger.Warn("station resolution failed",
			slog.Int64("station_id", stationID),
			slog.String("error", err.Error()),
		)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", playlistContentType)
	writer := m3u.NewWriter(w)
	entry := &m3u.Entry{
		Duration: -1,
		TvgID:    guide.ChannelID(detail.ID),
		TvgName:  detail.CallSign,
		TvgLogo:  detail.LogoURL,
		Title:    detail.CallSign,
		URL:      detail.StreamURL,
	}
	if err := writer.WriteEntry(entry); err != nil {
		h.logger.Error("failed to write station entry",
			slog.Int64("station_id", stationID),
			slog.String("error", err.Error()),
		)
	}
}

// requestOrigin reconstructs the scheme and host the client used, so
// playlist entries tune back through this server.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
