package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxSignalBot/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...map[string]interface{})        {}
func (nopLogger) Info(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Warn(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Error(context.Context, error, string, ...map[string]interface{}) {}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: nopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newsItem(id string, collected time.Time) *domain.NewsItem {
	return &domain.NewsItem{
		NewsID:       id,
		Source:       "newswire",
		Title:        "BOJ holds rates steady",
		URL:          "https://example.com/" + id,
		PublishedAt:  collected.Add(-10 * time.Minute),
		CollectedAt:  collected,
		Topic:        "monetary_policy",
		Sentiment:    1,
		ImpactUSDJPY: 4,
		ImpactEURJPY: 2,
		TimeHorizon:  domain.HorizonShort,
		Summary:      "No change to policy rate",
		Label:        domain.LabelBuyCandidate,
		RuleVersion:  "v1.0",
	}
}

func TestNewsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	collected := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	want := newsItem("news-1", collected)
	require.NoError(t, repo.SaveNewsItem(ctx, want))

	items, err := repo.FetchRecentNews(ctx, "USD_JPY", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, want.NewsID, got.NewsID)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Sentiment, got.Sentiment)
	assert.Equal(t, want.ImpactUSDJPY, got.ImpactUSDJPY)
	assert.Equal(t, want.ImpactEURJPY, got.ImpactEURJPY)
	assert.Equal(t, want.TimeHorizon, got.TimeHorizon)
	assert.Equal(t, want.Label, got.Label)
	assert.Equal(t, want.RuleVersion, got.RuleVersion)
	assert.True(t, got.CollectedAt.Equal(want.CollectedAt), "collected_at mismatch: %v vs %v", got.CollectedAt, want.CollectedAt)
	assert.True(t, got.PublishedAt.Equal(want.PublishedAt), "published_at mismatch: %v vs %v", got.PublishedAt, want.PublishedAt)
}

func TestFetchRecentNewsUsesSymbolImpact(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	collected := time.Now().UTC().Add(-time.Hour)

	// High USD impact, low EUR impact.
	item := newsItem("news-usd", collected)
	require.NoError(t, repo.SaveNewsItem(ctx, item))

	usd, err := repo.FetchRecentNews(ctx, "USD_JPY", 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, usd, 1)

	// The same row falls below the default floor on the EUR column.
	eur, err := repo.FetchRecentNews(ctx, "EUR_JPY", 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, eur)
}

func TestFetchRecentNewsCutoffAndLimit(t *testing.T) {
	repo, err := NewRepository(Config{
		DBPath:       filepath.Join(t.TempDir(), "test.db"),
		MaxNewsItems: 3,
		Logger:       nopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	ctx := context.Background()

	now := time.Now().UTC()
	stale := newsItem("news-stale", now.Add(-48*time.Hour))
	require.NoError(t, repo.SaveNewsItem(ctx, stale))
	for i := 0; i < 5; i++ {
		item := newsItem(fmt.Sprintf("news-%d", i), now.Add(-time.Duration(i+1)*time.Hour))
		require.NoError(t, repo.SaveNewsItem(ctx, item))
	}

	items, err := repo.FetchRecentNews(ctx, "USD_JPY", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 3)
	// Newest first, stale item never present.
	assert.Equal(t, "news-0", items[0].NewsID)
	assert.Equal(t, "news-1", items[1].NewsID)
	assert.Equal(t, "news-2", items[2].NewsID)
}

func TestSaveNewsItemIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	collected := time.Now().UTC().Add(-time.Hour)

	item := newsItem("news-1", collected)
	require.NoError(t, repo.SaveNewsItem(ctx, item))
	item.Sentiment = 2
	require.NoError(t, repo.SaveNewsItem(ctx, item))

	items, err := repo.FetchRecentNews(ctx, "USD_JPY", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Sentiment)
}

func TestSignalRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sig := &domain.Signal{
		Symbol:     "USD_JPY",
		Type:       domain.SignalBuy,
		Confidence: 0.9,
		Reason:     "technical: uptrend with bullish momentum",
		News: domain.NewsSummary{
			Count:        2,
			AvgSentiment: 1.5,
			AvgImpact:    4,
		},
		RuleVersion: "v1.0",
		Timestamp:   time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
	}

	id, err := repo.SaveSignal(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, "20260115_093000_USD_JPY", id)

	later := &domain.Signal{
		Symbol:      "USD_JPY",
		Type:        domain.SignalHold,
		Confidence:  0.5,
		Reason:      "no clear edge",
		RuleVersion: "v1.0",
		Timestamp:   time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	_, err = repo.SaveSignal(ctx, later)
	require.NoError(t, err)

	signals, err := repo.RecentSignals(ctx, "USD_JPY", 10)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, domain.SignalHold, signals[0].Type)
	assert.Equal(t, domain.SignalBuy, signals[1].Type)
	assert.InDelta(t, 0.9, signals[1].Confidence, 1e-9)
	assert.Equal(t, 2, signals[1].News.Count)
	assert.InDelta(t, 1.5, signals[1].News.AvgSentiment, 1e-9)
}

func TestRecentSignalsFiltersSymbol(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, symbol := range []string{"USD_JPY", "EUR_JPY"} {
		_, err := repo.SaveSignal(ctx, &domain.Signal{
			Symbol:      symbol,
			Type:        domain.SignalBuy,
			Confidence:  0.6,
			Reason:      "test",
			RuleVersion: "v1.0",
			Timestamp:   time.Date(2026, 1, 15, 9+i, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	signals, err := repo.RecentSignals(ctx, "EUR_JPY", 10)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "EUR_JPY", signals[0].Symbol)
}

func TestTradeResultRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.SaveTradeResult(ctx, &domain.TradeResult{
		Success:   true,
		Action:    domain.ActionBuy,
		Symbol:    "USD_JPY",
		Size:      1,
		OrderID:   "DRY_1A2B3C4D",
		Reason:    "signal confidence 0.90",
		Timestamp: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		DryRun:    true,
	})
	require.NoError(t, err)
	second, err := repo.SaveTradeResult(ctx, &domain.TradeResult{
		Success:   false,
		Action:    domain.ActionSkip,
		Symbol:    "USD_JPY",
		Reason:    "daily trade limit reached",
		Timestamp: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	results, err := repo.RecentTradeResults(ctx, "USD_JPY", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.ActionSkip, results[0].Action)
	assert.False(t, results[0].Success)
	assert.Equal(t, domain.ActionBuy, results[1].Action)
	assert.True(t, results[1].Success)
	assert.True(t, results[1].DryRun)
	assert.Equal(t, "DRY_1A2B3C4D", results[1].OrderID)
}
