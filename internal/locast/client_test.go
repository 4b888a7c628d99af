package locast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequestContext() RequestContext {
	headers := http.Header{}
	headers.Set("User-Agent", "test-agent")
	return RequestContext{
		Headers: headers,
		Cookies: []*http.Cookie{{Name: "_member_location", Value: "38.9885%2C-76.791"}},
	}
}

func TestClient_Login(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"action":   r.PostFormValue("action"),
			"username": r.PostFormValue("username"),
			"password": r.PostFormValue("password"),
		}
		w.Write([]byte(`{"token":"abc123"}`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	token, err := client.Login(context.Background(), testRequestContext(), "user@example.com", "hunter2")

	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	assert.Equal(t, "member_login", gotForm["action"])
	assert.Equal(t, "user@example.com", gotForm["username"])
	assert.Equal(t, "hunter2", gotForm["password"])
}

func TestClient_LoginNoToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	_, err := client.Login(context.Background(), testRequestContext(), "user@example.com", "wrong")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestClient_SendsRequestContext(t *testing.T) {
	var gotAgent string
	var gotCookie *http.Cookie
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotCookie, _ = r.Cookie("_member_location")
		w.Write([]byte(`{"token":"t"}`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	_, err := client.Login(context.Background(), testRequestContext(), "u", "p")

	require.NoError(t, err)
	assert.Equal(t, "test-agent", gotAgent)
	require.NotNil(t, gotCookie)
	assert.Equal(t, "38.9885%2C-76.791", gotCookie.Value)
}

func TestClient_LookupMarket(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"action": r.PostFormValue("action"),
			"lat":    r.PostFormValue("lat"),
			"lon":    r.PostFormValue("lon"),
		}
		w.Write([]byte(`{"DMA":"506","name":"Boston"}`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	market, err := client.LookupMarket(context.Background(), testRequestContext(), 38.9885, -76.791)

	require.NoError(t, err)
	assert.Equal(t, Market{DMA: "506", Name: "Boston"}, market)
	assert.Equal(t, "get_dma", gotForm["action"])
	assert.Equal(t, "38.9885", gotForm["lat"])
	assert.Equal(t, "-76.791", gotForm["lon"])
}

func TestClient_LookupMarketMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no dma", `{"name":"Boston"}`},
		{"no name", `{"DMA":"506"}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(server.URL, 5*time.Second, nil)
			_, err := client.LookupMarket(context.Background(), testRequestContext(), 1, 2)

			assert.ErrorIs(t, err, ErrMarketUnresolved)
		})
	}
}

func TestClient_FetchGuide(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"action":     r.PostFormValue("action"),
			"dma":        r.PostFormValue("dma"),
			"start_time": r.PostFormValue("start_time"),
		}
		w.Write([]byte(`[{"id":1234,"callSign":"WCVB","active":true,"listings":[{"stationId":1234,"title":"News"}]}]`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	asOf := time.Date(2020, 5, 1, 15, 42, 7, 0, time.FixedZone("MST", -7*3600))
	channels, err := client.FetchGuide(context.Background(), testRequestContext(), "506", asOf)

	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, int64(1234), channels[0].ID)
	assert.Equal(t, "WCVB", channels[0].CallSign)
	require.Len(t, channels[0].Listings, 1)
	assert.Equal(t, "News", channels[0].Listings[0].Title)

	assert.Equal(t, "get_epgs", gotForm["action"])
	assert.Equal(t, "506", gotForm["dma"])
	// Start time is midnight of the request day with the fixed suffix.
	assert.Equal(t, "2020-05-01T00:00:00.155-07:00", gotForm["start_time"])
}

func TestClient_FetchGuideEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	channels, err := client.FetchGuide(context.Background(), testRequestContext(), "506", time.Now())

	require.NoError(t, err)
	assert.Empty(t, channels)
}

func TestClient_ResolveStation(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"action":     r.PostFormValue("action"),
			"station_id": r.PostFormValue("station_id"),
		}
		w.Write([]byte(`{"id":1234,"callSign":"WCVB","active":true,"streamUrl":"http://cdn.example.com/1234.m3u8"}`))
	}))
	defer server.Close()

	client := New(server.URL, 5*time.Second, nil)
	detail, err := client.ResolveStation(context.Background(), testRequestContext(), 1234, 38.9885, -76.791)

	require.NoError(t, err)
	assert.Equal(t, "get_station", gotForm["action"])
	assert.Equal(t, "1234", gotForm["station_id"])
	assert.Equal(t, "http://cdn.example.com/1234.m3u8", detail.StreamURL)
	assert.True(t, detail.Active)
}

func TestClient_SourceUnavailable(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := New(server.URL, 5*time.Second, nil)
		_, err := client.Login(context.Background(), testRequestContext(), "u", "p")
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>not json</html>`))
		}))
		defer server.Close()

		client := New(server.URL, 5*time.Second, nil)
		_, err := client.LookupMarket(context.Background(), testRequestContext(), 1, 2)
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := New(server.URL, 5*time.Second, nil)
		_, err := client.FetchGuide(context.Background(), testRequestContext(), "506", time.Now())
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})
}

func TestFormatCoord(t *testing.T) {
	assert.Equal(t, "38.9885", FormatCoord(38.9885))
	assert.Equal(t, "-76.791", FormatCoord(-76.791))
	assert.Equal(t, "38", FormatCoord(38.0))
}
