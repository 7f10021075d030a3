package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNominatim struct {
	server *httptest.Server
	hits   atomic.Int32
	agents chan string
}

func newFakeNominatim(t *testing.T, places map[string]string) *fakeNominatim {
	t.Helper()
	f := &fakeNominatim{agents: make(chan string, 64)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		select {
		case f.agents <- r.Header.Get("User-Agent"):
		default:
		}
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		body, ok := places[r.URL.Query().Get("q")]
		if !ok {
			body = "[]"
		}
		if body == "fail" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeNominatim) client(cache Cache) *Client {
	return NewClient(Options{
		BaseURL:       f.server.URL,
		CountrySuffix: "Italia",
		Cache:         cache,
	})
}

const (
	milano = `[{"lat":"45.4642","lon":"9.1900"}]`
	roma   = `[{"lat":"41.9028","lon":"12.4964"}]`
)

func TestClient_Lookup(t *testing.T) {
	fake := newFakeNominatim(t, map[string]string{"Milano, Italia": milano})
	cache := NewMemoryCache()
	c := fake.client(cache)
	ctx := context.Background()

	coords, err := c.Lookup(ctx, "  Milano ")
	require.NoError(t, err)
	require.NotNil(t, coords)
	assert.InDelta(t, 45.4642, coords.Lat, 1e-9)
	assert.Equal(t, DefaultUserAgent, <-fake.agents)

	_, err = c.Lookup(ctx, "MILANO")
	require.NoError(t, err)
	assert.EqualValues(t, 1, fake.hits.Load(), "second lookup should be served from cache")

	t.Run("unknown locality is cached as negative", func(t *testing.T) {
		before := fake.hits.Load()
		coords, err := c.Lookup(ctx, "Nowhere")
		require.NoError(t, err)
		assert.Nil(t, coords)
		coords, err = c.Lookup(ctx, "nowhere")
		require.NoError(t, err)
		assert.Nil(t, coords)
		assert.Equal(t, before+1, fake.hits.Load())
	})

	t.Run("blank locality skips the service", func(t *testing.T) {
		before := fake.hits.Load()
		coords, err := c.Lookup(ctx, "   ")
		require.NoError(t, err)
		assert.Nil(t, coords)
		assert.Equal(t, before, fake.hits.Load())
	})
}

func TestClient_LookupFailureIsNotCached(t *testing.T) {
	fake := newFakeNominatim(t, map[string]string{"Napoli, Italia": "fail"})
	cache := NewMemoryCache()
	c := fake.client(cache)

	_, err := c.Lookup(context.Background(), "Napoli")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestClient_Distance(t *testing.T) {
	fake := newFakeNominatim(t, map[string]string{
		"Milano, Italia": milano,
		"Roma, Italia":   roma,
	})
	c := fake.client(NewMemoryCache())
	ctx := context.Background()

	km, err := c.Distance(ctx, "Milano", "Roma")
	require.NoError(t, err)
	require.NotNil(t, km)
	assert.InDelta(t, 477, *km, 3)

	km, err = c.Distance(ctx, "roma ", "Roma")
	require.NoError(t, err)
	require.NotNil(t, km)
	assert.Equal(t, 0, *km)

	km, err = c.Distance(ctx, "Milano", "Atlantide")
	require.NoError(t, err)
	assert.Nil(t, km)

	km, err = c.Distance(ctx, "", "Roma")
	require.NoError(t, err)
	assert.Nil(t, km)
}

func TestClient_Distances(t *testing.T) {
	fake := newFakeNominatim(t, map[string]string{
		"Milano, Italia": milano,
		"Roma, Italia":   roma,
		"Bari, Italia":   "fail",
	})
	c := fake.client(NewMemoryCache())

	got := c.Distances(context.Background(), "Milano", map[string]string{
		"s1": "Roma",
		"s2": "Milano",
		"s3": "Bari",
		"s4": "",
	})

	require.Len(t, got, 4)
	require.NotNil(t, got["s1"])
	assert.InDelta(t, 477, *got["s1"], 3)
	require.NotNil(t, got["s2"])
	assert.Equal(t, 0, *got["s2"])
	assert.Nil(t, got["s3"])
	assert.Nil(t, got["s4"])
}

func TestHaversineAndFormat(t *testing.T) {
	assert.InDelta(t, 0, Haversine(Coordinates{Lat: 10, Lon: 10}, Coordinates{Lat: 10, Lon: 10}), 1e-9)
	assert.InDelta(t, 111.19, Haversine(Coordinates{Lat: 0, Lon: 0}, Coordinates{Lat: 1, Lon: 0}), 0.01)

	assert.Equal(t, "", FormatDistance(nil))
	zero, far := 0, 42
	assert.Equal(t, "Stessa città", FormatDistance(&zero))
	assert.Equal(t, "42 km", FormatDistance(&far))
	assert.Equal(t, 3, RoundKm(2.5))
}
