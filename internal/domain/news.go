package domain

import (
	"fmt"
	"strings"
	"time"
)

// NewsLabel is the candidate classification assigned to a news item upstream.
type NewsLabel string

const (
	LabelBuyCandidate  NewsLabel = "BUY_CANDIDATE"
	LabelSellCandidate NewsLabel = "SELL_CANDIDATE"
	LabelRiskOff       NewsLabel = "RISK_OFF"
	LabelIgnore        NewsLabel = "IGNORE"
)

// TimeHorizon classifies how long a news item is expected to matter.
type TimeHorizon string

const (
	HorizonShort  TimeHorizon = "short"
	HorizonMedium TimeHorizon = "medium"
	HorizonLong   TimeHorizon = "long"
)

// NewsItem is one analyzed news event as produced by the collection pipeline.
// Sentiment is an integer in [-2, 2]; impact scores are integers in [1, 5].
type NewsItem struct {
	NewsID       string
	Source       string
	Title        string
	URL          string
	PublishedAt  time.Time
	CollectedAt  time.Time
	Topic        string
	Sentiment    int
	ImpactUSDJPY int
	ImpactEURJPY int
	TimeHorizon  TimeHorizon
	Summary      string
	Label        NewsLabel
	RuleVersion  string
}

// Validate checks the scored fields are within their documented ranges.
func (n *NewsItem) Validate() error {
	if n.Sentiment < -2 || n.Sentiment > 2 {
		return fmt.Errorf("sentiment %d out of range [-2, 2]", n.Sentiment)
	}
	if n.ImpactUSDJPY < 1 || n.ImpactUSDJPY > 5 {
		return fmt.Errorf("impact_usdjpy %d out of range [1, 5]", n.ImpactUSDJPY)
	}
	if n.ImpactEURJPY < 1 || n.ImpactEURJPY > 5 {
		return fmt.Errorf("impact_eurjpy %d out of range [1, 5]", n.ImpactEURJPY)
	}
	return nil
}

// ImpactFor returns the impact score relevant for the given trading symbol.
func (n *NewsItem) ImpactFor(symbol string) int {
	if strings.HasPrefix(symbol, "EUR") {
		return n.ImpactEURJPY
	}
	return n.ImpactUSDJPY
}

// NewsSummary aggregates a batch of news items for one symbol.
type NewsSummary struct {
	Count        int
	AvgSentiment float64
	AvgImpact    float64
	BullishCount int
	BearishCount int
	NeutralCount int
	Labels       map[NewsLabel]int
}
