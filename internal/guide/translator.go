// Package guide converts raw locast channel data into the canonical XMLTV
// document and keeps it fresh via the background refresher.
package guide

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/locastarr/internal/locast"
	"github.com/jmylchreest/locastarr/pkg/xmltv"
)

// ChannelID returns the canonical guide channel id for a station.
func ChannelID(stationID int64) string {
	return fmt.Sprintf("%d.locast.org", stationID)
}

// Translator maps raw channel records to the canonical document. It holds
// no state across calls; translating the same payload twice yields
// identical documents.
type Translator struct {
	loc *time.Location
}

// NewTranslator creates a Translator. Programme start times are converted
// into loc; nil means the process-local zone.
func NewTranslator(loc *time.Location) *Translator {
	if loc == nil {
		loc = time.Local
	}
	return &Translator{loc: loc}
}

// Location returns the translator's time location.
func (t *Translator) Location() *time.Location {
	return t.loc
}

// Translate builds the canonical document from a raw channel list. The
// mapping is strictly presence-driven: a field absent in the raw record
// suppresses the canonical field instead of emitting a placeholder, except
// for the explicit defaults (duration -1, rating "Unknown", empty title,
// new=false).
func (t *Translator) Translate(channels []locast.RawChannel) *xmltv.Document {
	doc := &xmltv.Document{}

	for _, ch := range channels {
		doc.Channels = append(doc.Channels, xmltv.Channel{
			ID:           ChannelID(ch.ID),
			DisplayNames: []string{ch.CallSign, ch.Name},
			Icon:         ch.LogoURL,
		})

		for _, listing := range ch.Listings {
			doc.Programmes = append(doc.Programmes, t.translateListing(listing))
		}
	}

	return doc
}

// translateListing maps one raw listing to a programme.
func (t *Translator) translateListing(listing locast.Listing) xmltv.Programme {
	prog := xmltv.Programme{
		Channel:       ChannelID(listing.StationID),
		Start:         time.UnixMilli(listing.StartTime).In(t.loc),
		Title:         listing.Title,
		IsNew:         listing.IsNew,
		LengthSeconds: -1,
		Rating:        "Unknown",
	}

	if listing.Duration != nil {
		prog.LengthSeconds = *listing.Duration
	}
	if listing.Rating != nil {
		prog.Rating = *listing.Rating
	}
	if listing.Genres != nil {
		prog.Categories = strings.Split(*listing.Genres, ",")
	}
	if listing.Directors != nil || listing.TopCast != nil {
		prog.Credits = &xmltv.Credits{
			Directors: splitNames(listing.Directors),
			Actors:    splitNames(listing.TopCast),
		}
	}
	if listing.ReleaseYear != nil {
		year := strconv.Itoa(*listing.ReleaseYear)
		prog.Date = &year
	}
	if listing.Description != nil {
		prog.Description = listing.Description
	}
	if listing.SeasonNumber != nil && listing.EpisodeNumber != nil {
		code := fmt.Sprintf("S%dE%d", *listing.SeasonNumber, *listing.EpisodeNumber)
		prog.EpisodeNum = &code
	}
	if listing.EpisodeTitle != nil {
		prog.SubTitle = listing.EpisodeTitle
	}

	return prog
}

// splitNames comma-splits an optional name list, returning an empty list
// for the missing side.
func splitNames(s *string) []string {
	if s == nil {
		return []string{}
	}
	return strings.Split(*s, ",")
}
