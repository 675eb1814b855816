package signal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type stubNewsProvider struct {
	items []domain.NewsItem
	err   error
}

func (s *stubNewsProvider) FetchRecentNews(ctx context.Context, symbol string, lookback time.Duration) ([]domain.NewsItem, error) {
	return s.items, s.err
}

type stubSignalRepo struct {
	saved []*domain.Signal
	err   error
}

func (s *stubSignalRepo) SaveSignal(ctx context.Context, sig *domain.Signal) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, sig)
	return "20260112_100000_" + sig.Symbol, nil
}

func (s *stubSignalRepo) RecentSignals(ctx context.Context, symbol string, limit int) ([]*domain.Signal, error) {
	return nil, nil
}

func newTestEngine(t *testing.T, news ports.NewsProvider, repo ports.SignalRepository) *Engine {
	t.Helper()
	e, err := New(Config{News: news, SignalRepo: repo, Logger: nopLogger{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	e.now = func() time.Time { return time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC) }
	return e
}

func validNewsItem(sentiment, impact int) domain.NewsItem {
	return domain.NewsItem{
		NewsID:       "n1",
		Sentiment:    sentiment,
		ImpactUSDJPY: impact,
		ImpactEURJPY: impact,
		Label:        domain.LabelBuyCandidate,
		CollectedAt:  time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
	}
}

func snapshot(trend domain.Trend, momentum domain.Momentum) *domain.IndicatorSnapshot {
	return &domain.IndicatorSnapshot{
		Symbol:   "USD_JPY",
		Trend:    trend,
		Momentum: momentum,
		RSI:      55,
	}
}

func TestGenerateStrongBuy(t *testing.T) {
	news := &stubNewsProvider{items: []domain.NewsItem{validNewsItem(1, 4), validNewsItem(1, 4)}}
	e := newTestEngine(t, news, nil)

	sig, err := e.Generate(context.Background(), "USD_JPY", snapshot(domain.TrendUp, domain.MomentumBullish))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sig.Type != domain.SignalBuy {
		t.Errorf("signal = %v, want buy", sig.Type)
	}
	// score 6 saturates the confidence formula at 1.0
	if sig.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", sig.Confidence)
	}
	if !strings.Contains(sig.Reason, "news bullish") {
		t.Errorf("reason %q should mention the news factor", sig.Reason)
	}
	if !strings.Contains(sig.Reason, "uptrend with bullish momentum") {
		t.Errorf("reason %q should mention the technical factor", sig.Reason)
	}
	if sig.RuleVersion != "v1.0" {
		t.Errorf("rule version = %q, want v1.0", sig.RuleVersion)
	}
}

func TestGenerateStrongSell(t *testing.T) {
	news := &stubNewsProvider{items: []domain.NewsItem{validNewsItem(-2, 4)}}
	e := newTestEngine(t, news, nil)

	sig, err := e.Generate(context.Background(), "USD_JPY", snapshot(domain.TrendDown, domain.MomentumBearish))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sig.Type != domain.SignalSell {
		t.Errorf("signal = %v, want sell", sig.Type)
	}
	if sig.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", sig.Confidence)
	}
}

func TestGenerateHoldBelowThreshold(t *testing.T) {
	// Uptrend (1pt) + oversold (2pt) = 3pt, one short of the buy threshold.
	e := newTestEngine(t, &stubNewsProvider{}, nil)
	tech := snapshot(domain.TrendUp, domain.MomentumNeutral)
	tech.Oversold = true
	tech.RSI = 25

	sig, err := e.Generate(context.Background(), "USD_JPY", tech)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sig.Type != domain.SignalHold {
		t.Errorf("signal = %v, want hold", sig.Type)
	}
	if sig.Confidence != 0.5 {
		t.Errorf("hold confidence = %v, want 0.5", sig.Confidence)
	}
	if !strings.Contains(sig.Reason, "buy factors (3pt) vs sell factors (0pt)") {
		t.Errorf("reason %q should carry the score breakdown", sig.Reason)
	}
}

func TestGenerateHoldOnOpposition(t *testing.T) {
	// Buy side reaches 4pt but the overbought RSI puts 2pt on the sell side,
	// above the opposing maximum of 1.
	news := &stubNewsProvider{items: []domain.NewsItem{validNewsItem(1, 2)}}
	e := newTestEngine(t, news, nil)
	tech := snapshot(domain.TrendUp, domain.MomentumBullish)
	tech.Overbought = true
	tech.RSI = 75

	sig, err := e.Generate(context.Background(), "USD_JPY", tech)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sig.Type != domain.SignalHold {
		t.Errorf("signal = %v, want hold (buy 4pt vs sell 2pt)", sig.Type)
	}
	if !strings.Contains(sig.Reason, "buy factors (4pt) vs sell factors (2pt)") {
		t.Errorf("reason %q should carry the score breakdown", sig.Reason)
	}
}

func TestGenerateBuyWithoutSaturation(t *testing.T) {
	// Buy side exactly 4pt: confidence 0.3 + 4*0.15 = 0.9.
	news := &stubNewsProvider{items: []domain.NewsItem{validNewsItem(1, 2)}}
	e := newTestEngine(t, news, nil)

	sig, err := e.Generate(context.Background(), "USD_JPY", snapshot(domain.TrendUp, domain.MomentumBullish))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sig.Type != domain.SignalBuy {
		t.Errorf("signal = %v, want buy", sig.Type)
	}
	if sig.Confidence < 0.899 || sig.Confidence > 0.901 {
		t.Errorf("confidence = %v, want 0.9", sig.Confidence)
	}
}

func TestGenerateDegradesWhenNewsFetchFails(t *testing.T) {
	news := &stubNewsProvider{err: errors.New("store unavailable")}
	e := newTestEngine(t, news, nil)
	tech := snapshot(domain.TrendUp, domain.MomentumBullish)
	tech.Oversold = true
	tech.RSI = 25

	sig, err := e.Generate(context.Background(), "USD_JPY", tech)
	if err != nil {
		t.Fatalf("Generate should degrade to technicals only, got: %v", err)
	}
	// 3pt trend+momentum and 2pt oversold still make a buy.
	if sig.Type != domain.SignalBuy {
		t.Errorf("signal = %v, want buy from technicals alone", sig.Type)
	}
	if sig.News.Count != 0 {
		t.Errorf("news count = %d, want 0", sig.News.Count)
	}
}

func TestGenerateFailsWhenAllNewsInvalid(t *testing.T) {
	bad := validNewsItem(1, 4)
	bad.Sentiment = 5
	news := &stubNewsProvider{items: []domain.NewsItem{bad}}
	e := newTestEngine(t, news, nil)

	_, err := e.Generate(context.Background(), "USD_JPY", snapshot(domain.TrendUp, domain.MomentumNeutral))
	if !errors.Is(err, ports.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation for a fully invalid batch", err)
	}
}

func TestGeneratePersistsSignal(t *testing.T) {
	repo := &stubSignalRepo{}
	e := newTestEngine(t, &stubNewsProvider{}, repo)

	if _, err := e.Generate(context.Background(), "USD_JPY", snapshot(domain.TrendUp, domain.MomentumNeutral)); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("saved %d signals, want 1", len(repo.saved))
	}
	if repo.saved[0].Symbol != "USD_JPY" {
		t.Errorf("persisted symbol = %q, want USD_JPY", repo.saved[0].Symbol)
	}
}

func TestGenerateSurvivesRepositoryFailure(t *testing.T) {
	repo := &stubSignalRepo{err: errors.New("disk full")}
	e := newTestEngine(t, &stubNewsProvider{}, repo)

	sig, err := e.Generate(context.Background(), "USD_JPY", snapshot(domain.TrendUp, domain.MomentumNeutral))
	if err != nil {
		t.Fatalf("Generate should not fail on persistence errors, got: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a signal despite the repository failure")
	}
}

func TestSummarizeNews(t *testing.T) {
	items := []domain.NewsItem{
		{NewsID: "a", Sentiment: 2, ImpactUSDJPY: 5, ImpactEURJPY: 1, Label: domain.LabelBuyCandidate},
		{NewsID: "b", Sentiment: -1, ImpactUSDJPY: 3, ImpactEURJPY: 1, Label: domain.LabelSellCandidate},
		{NewsID: "c", Sentiment: 0, ImpactUSDJPY: 4, ImpactEURJPY: 1, Label: domain.LabelBuyCandidate},
	}

	summary, err := SummarizeNews(context.Background(), nopLogger{}, items, "USD_JPY")
	if err != nil {
		t.Fatalf("SummarizeNews failed: %v", err)
	}
	if summary.Count != 3 {
		t.Errorf("count = %d, want 3", summary.Count)
	}
	if summary.BullishCount != 1 || summary.BearishCount != 1 || summary.NeutralCount != 1 {
		t.Errorf("sentiment counts = (%d, %d, %d), want (1, 1, 1)",
			summary.BullishCount, summary.BearishCount, summary.NeutralCount)
	}
	if summary.AvgImpact != 4 {
		t.Errorf("avg impact = %v, want 4 (the USD_JPY impact field)", summary.AvgImpact)
	}
	if summary.Labels[domain.LabelBuyCandidate] != 2 || summary.Labels[domain.LabelSellCandidate] != 1 {
		t.Errorf("label histogram = %v, want 2 buy candidates and 1 sell candidate", summary.Labels)
	}
}

func TestSummarizeNewsSelectsImpactBySymbol(t *testing.T) {
	items := []domain.NewsItem{
		{NewsID: "a", Sentiment: 1, ImpactUSDJPY: 1, ImpactEURJPY: 5, Label: domain.LabelBuyCandidate},
	}
	summary, err := SummarizeNews(context.Background(), nopLogger{}, items, "EUR_JPY")
	if err != nil {
		t.Fatalf("SummarizeNews failed: %v", err)
	}
	if summary.AvgImpact != 5 {
		t.Errorf("avg impact = %v, want 5 (the EUR_JPY impact field)", summary.AvgImpact)
	}
}

func TestSummarizeNewsDropsInvalidItems(t *testing.T) {
	items := []domain.NewsItem{
		{NewsID: "ok", Sentiment: 2, ImpactUSDJPY: 4, ImpactEURJPY: 4, Label: domain.LabelBuyCandidate},
		{NewsID: "bad-sentiment", Sentiment: 7, ImpactUSDJPY: 4, ImpactEURJPY: 4},
		{NewsID: "bad-impact", Sentiment: 1, ImpactUSDJPY: 0, ImpactEURJPY: 4},
	}
	summary, err := SummarizeNews(context.Background(), nopLogger{}, items, "USD_JPY")
	if err != nil {
		t.Fatalf("SummarizeNews failed: %v", err)
	}
	if summary.Count != 1 {
		t.Errorf("count = %d, want 1 after dropping invalid items", summary.Count)
	}
	if summary.AvgSentiment != 2 {
		t.Errorf("avg sentiment = %v, want 2 (computed from valid items only)", summary.AvgSentiment)
	}
}

func TestSummarizeNewsEmptyBatch(t *testing.T) {
	summary, err := SummarizeNews(context.Background(), nopLogger{}, nil, "USD_JPY")
	if err != nil {
		t.Fatalf("empty batch should not fail: %v", err)
	}
	if summary.Count != 0 || summary.AvgSentiment != 0 || summary.AvgImpact != 0 {
		t.Errorf("empty batch summary = %+v, want zeroes", summary)
	}
}
