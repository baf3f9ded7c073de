package storage_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebeam/internal/storage"
	"pagebeam/internal/testsupport"
)

func seedView(t *testing.T, store *storage.GormStore, view storage.PageView) {
	t.Helper()
	if view.Timestamp.IsZero() {
		view.Timestamp = time.Now().UTC()
	}
	testsupport.CreatePageView(t, store, view)
}

func TestDailyStats(t *testing.T) {
	store := testsupport.SetupTestStore(t)
	today := time.Now().UTC()

	// Three views today across two sessions.
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1", Timestamp: today})
	seedView(t, store, storage.PageView{Path: "/blog", SessionID: "s1", Timestamp: today})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s2", Timestamp: today})

	// One view yesterday and one outside the window.
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s3", Timestamp: today.AddDate(0, 0, -1)})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s4", Timestamp: today.AddDate(0, 0, -45)})

	stats, err := store.DailyStats()
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Newest first.
	assert.Equal(t, 3, stats[0].PageViews)
	assert.Equal(t, 2, stats[0].UniqueVisitors)
	assert.Equal(t, 1, stats[1].PageViews)
	assert.Greater(t, stats[0].Date, stats[1].Date)
}

func TestCountryStats(t *testing.T) {
	store := testsupport.SetupTestStore(t)

	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1", Country: "Germany"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s2", Country: "Germany"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s3", Country: "France"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s4", Country: ""})

	stats, err := store.CountryStats()
	require.NoError(t, err)
	require.Len(t, stats, 2, "unresolved countries are excluded")

	assert.Equal(t, "Germany", stats[0].Country)
	assert.Equal(t, 2, stats[0].Visits)
	assert.Equal(t, 2, stats[0].UniqueVisitors)
	assert.Equal(t, "France", stats[1].Country)
}

func TestCountryStatsCap(t *testing.T) {
	store := testsupport.SetupTestStore(t)

	for i := 0; i < 25; i++ {
		seedView(t, store, storage.PageView{
			Path:      "/",
			SessionID: fmt.Sprintf("s%d", i),
			Country:   fmt.Sprintf("Country %02d", i),
		})
	}

	stats, err := store.CountryStats()
	require.NoError(t, err)
	assert.Len(t, stats, 20)
}

func TestTopPages(t *testing.T) {
	store := testsupport.SetupTestStore(t)

	seedView(t, store, storage.PageView{Path: "/blog", SessionID: "s1"})
	seedView(t, store, storage.PageView{Path: "/blog", SessionID: "s2"})
	seedView(t, store, storage.PageView{Path: "/blog", SessionID: "s2"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1"})

	stats, err := store.TopPages()
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "/blog", stats[0].Path)
	assert.Equal(t, 3, stats[0].Views)
	assert.Equal(t, 2, stats[0].UniqueVisitors)
	assert.Equal(t, "/", stats[1].Path)
}

func TestBrowserStats(t *testing.T) {
	store := testsupport.SetupTestStore(t)

	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1", Browser: "Chrome"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s2", Browser: "Chrome"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s3", Browser: "Firefox"})

	stats, err := store.BrowserStats()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Chrome", stats[0].Browser)
	assert.Equal(t, 2, stats[0].Visits)
}

func TestDeviceStats(t *testing.T) {
	store := testsupport.SetupTestStore(t)

	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1", DeviceType: "Desktop"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1", DeviceType: "Desktop"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s2", DeviceType: "Mobile"})

	stats, err := store.DeviceStats()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Desktop", stats[0].DeviceType)
	assert.Equal(t, 2, stats[0].Visits)
	assert.Equal(t, 1, stats[0].UniqueVisitors)
}

func TestReferrerStats(t *testing.T) {
	store := testsupport.SetupTestStore(t)

	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1", Referrer: "https://www.google.com/search?q=x"})
	seedView(t, store, storage.PageView{Path: "/a", SessionID: "s1", Referrer: "https://www.google.co.uk/"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s2", Referrer: ""})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s3", Referrer: "https://t.co/abc"})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s4", Referrer: "https://obscure.example/post"})

	stats, err := store.ReferrerStats()
	require.NoError(t, err)
	require.Len(t, stats, 4)

	bySource := make(map[string]storage.ReferrerStat)
	for _, s := range stats {
		bySource[s.Source] = s
	}

	assert.Equal(t, 2, bySource["Google"].Visits)
	assert.Equal(t, 1, bySource["Google"].UniqueVisitors, "same session counted once per source")
	assert.Equal(t, 1, bySource["Direct"].Visits)
	assert.Equal(t, 1, bySource["Twitter"].Visits)
	assert.Equal(t, 1, bySource["Other"].Visits)

	// Busiest source first.
	assert.Equal(t, "Google", stats[0].Source)
}

func TestUniqueVisitorCount(t *testing.T) {
	store := testsupport.SetupTestStore(t)
	today := time.Now().UTC()

	// s1 appears on two different days but counts once.
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1", Timestamp: today})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s1", Timestamp: today.AddDate(0, 0, -1)})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s2", Timestamp: today})
	seedView(t, store, storage.PageView{Path: "/", SessionID: "s3", Timestamp: today.AddDate(0, 0, -45)})

	count, err := store.UniqueVisitorCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
