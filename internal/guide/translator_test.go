package guide

import (
	"bytes"
	"testing"
	"time"

	"github.com/jmylchreest/locastarr/internal/locast"
	"github.com/jmylchreest/locastarr/pkg/xmltv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func int64Ptr(i int64) *int64 { return &i }

func testZone() *time.Location { return time.FixedZone("MST", -7*3600) }

func TestChannelID(t *testing.T) {
	assert.Equal(t, "1234.locast.org", ChannelID(1234))
}

func TestTranslate_Channel(t *testing.T) {
	tr := NewTranslator(testZone())

	doc := tr.Translate([]locast.RawChannel{
		{
			ID:       1234,
			CallSign: "WCVB",
			Name:     "ABC (WCVB) Boston",
			LogoURL:  "http://example.com/logo.png",
		},
	})

	require.Len(t, doc.Channels, 1)
	ch := doc.Channels[0]
	assert.Equal(t, "1234.locast.org", ch.ID)
	assert.Equal(t, []string{"WCVB", "ABC (WCVB) Boston"}, ch.DisplayNames)
	assert.Equal(t, "http://example.com/logo.png", ch.Icon)
	assert.Empty(t, doc.Programmes)
}

func TestTranslate_ListingDefaults(t *testing.T) {
	tr := NewTranslator(testZone())

	doc := tr.Translate([]locast.RawChannel{
		{
			ID: 1,
			Listings: []locast.Listing{
				{StationID: 1, Title: "Bare", StartTime: 1588356000000},
			},
		},
	})

	require.Len(t, doc.Programmes, 1)
	prog := doc.Programmes[0]
	assert.Equal(t, "1.locast.org", prog.Channel)
	assert.Equal(t, "Bare", prog.Title)
	assert.Equal(t, int64(-1), prog.LengthSeconds)
	assert.Equal(t, "Unknown", prog.Rating)
	assert.Nil(t, prog.Categories)
	assert.Nil(t, prog.Credits)
	assert.Nil(t, prog.Date)
	assert.Nil(t, prog.Description)
	assert.Nil(t, prog.EpisodeNum)
	assert.Nil(t, prog.SubTitle)
	assert.False(t, prog.IsNew)
}

func TestTranslate_StartTimeInZone(t *testing.T) {
	tr := NewTranslator(testZone())

	// 2020-05-01T18:00:00-07:00 as epoch milliseconds.
	startMillis := time.Date(2020, 5, 1, 18, 0, 0, 0, testZone()).UnixMilli()
	doc := tr.Translate([]locast.RawChannel{
		{ID: 1, Listings: []locast.Listing{{StationID: 1, StartTime: startMillis}}},
	})

	require.Len(t, doc.Programmes, 1)
	assert.Equal(t, "20200501180000 MST", doc.Programmes[0].Start.Format("20060102150405 MST"))
}

func TestTranslate_Genres(t *testing.T) {
	tr := NewTranslator(testZone())

	doc := tr.Translate([]locast.RawChannel{
		{ID: 1, Listings: []locast.Listing{
			{StationID: 1, Genres: strPtr("News,Entertainment")},
			{StationID: 1},
		}},
	})

	require.Len(t, doc.Programmes, 2)
	assert.Equal(t, []string{"News", "Entertainment"}, doc.Programmes[0].Categories)
	assert.Nil(t, doc.Programmes[1].Categories)
}

func TestTranslate_CreditsPresence(t *testing.T) {
	tr := NewTranslator(testZone())

	doc := tr.Translate([]locast.RawChannel{
		{ID: 1, Listings: []locast.Listing{
			{StationID: 1, Directors: strPtr("A Director"), TopCast: strPtr("An Actor,Another Actor")},
			{StationID: 1, TopCast: strPtr("Solo Actor")},
			{StationID: 1, Directors: strPtr("Solo Director")},
			{StationID: 1},
		}},
	})

	require.Len(t, doc.Programmes, 4)

	both := doc.Programmes[0].Credits
	require.NotNil(t, both)
	assert.Equal(t, []string{"A Director"}, both.Directors)
	assert.Equal(t, []string{"An Actor", "Another Actor"}, both.Actors)

	// One side missing still attaches credits, with the missing side empty.
	castOnly := doc.Programmes[1].Credits
	require.NotNil(t, castOnly)
	assert.Empty(t, castOnly.Directors)
	assert.Equal(t, []string{"Solo Actor"}, castOnly.Actors)

	directorOnly := doc.Programmes[2].Credits
	require.NotNil(t, directorOnly)
	assert.Equal(t, []string{"Solo Director"}, directorOnly.Directors)
	assert.Empty(t, directorOnly.Actors)

	assert.Nil(t, doc.Programmes[3].Credits)
}

func TestTranslate_EpisodeNumRequiresBoth(t *testing.T) {
	tr := NewTranslator(testZone())

	doc := tr.Translate([]locast.RawChannel{
		{ID: 1, Listings: []locast.Listing{
			{StationID: 1, SeasonNumber: intPtr(3), EpisodeNumber: intPtr(12)},
			{StationID: 1, SeasonNumber: intPtr(3)},
			{StationID: 1, EpisodeNumber: intPtr(12)},
		}},
	})

	require.Len(t, doc.Programmes, 3)
	require.NotNil(t, doc.Programmes[0].EpisodeNum)
	assert.Equal(t, "S3E12", *doc.Programmes[0].EpisodeNum)
	assert.Nil(t, doc.Programmes[1].EpisodeNum)
	assert.Nil(t, doc.Programmes[2].EpisodeNum)
}

func TestTranslate_OptionalFields(t *testing.T) {
	tr := NewTranslator(testZone())

	doc := tr.Translate([]locast.RawChannel{
		{ID: 1, Listings: []locast.Listing{
			{
				StationID:    1,
				Title:        "Inside Edition",
				Duration:     int64Ptr(1800),
				Rating:       strPtr("TV-PG"),
				ReleaseYear:  intPtr(2019),
				Description:  strPtr("A description."),
				EpisodeTitle: strPtr("The Episode"),
				IsNew:        true,
			},
		}},
	})

	require.Len(t, doc.Programmes, 1)
	prog := doc.Programmes[0]
	assert.Equal(t, int64(1800), prog.LengthSeconds)
	assert.Equal(t, "TV-PG", prog.Rating)
	require.NotNil(t, prog.Date)
	assert.Equal(t, "2019", *prog.Date)
	require.NotNil(t, prog.Description)
	assert.Equal(t, "A description.", *prog.Description)
	require.NotNil(t, prog.SubTitle)
	assert.Equal(t, "The Episode", *prog.SubTitle)
	assert.True(t, prog.IsNew)
}

func TestTranslate_Idempotent(t *testing.T) {
	tr := NewTranslator(testZone())

	channels := []locast.RawChannel{
		{
			ID:       1234,
			CallSign: "WCVB",
			Name:     "ABC (WCVB) Boston",
			LogoURL:  "http://example.com/logo.png",
			Listings: []locast.Listing{
				{
					StationID:     1234,
					Title:         "Inside Edition",
					StartTime:     1588356000000,
					Duration:      int64Ptr(1800),
					Rating:        strPtr("TV-PG"),
					Genres:        strPtr("News"),
					TopCast:       strPtr("Deborah Norville"),
					SeasonNumber:  intPtr(32),
					EpisodeNumber: intPtr(180),
					EpisodeTitle:  strPtr("Episode 180"),
					IsNew:         true,
				},
			},
		},
	}

	var first, second bytes.Buffer
	require.NoError(t, xmltv.NewWriter(&first, tr.Location()).WriteDocument(tr.Translate(channels)))
	require.NoError(t, xmltv.NewWriter(&second, tr.Location()).WriteDocument(tr.Translate(channels)))

	assert.Equal(t, first.Bytes(), second.Bytes())
	assert.Contains(t, first.String(), `<episode-num system="common">S32E180</episode-num>`)
	assert.Contains(t, first.String(), "<actor>Deborah Norville</actor>")
}
