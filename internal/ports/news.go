package ports

import (
	"context"
	"time"

	"fxSignalBot/internal/domain"
)

// NewsProvider supplies recently collected, analyzed news items for a symbol.
type NewsProvider interface {
	// FetchRecentNews returns items collected within the lookback window whose
	// impact for the symbol clears the provider's threshold, newest first.
	FetchRecentNews(ctx context.Context, symbol string, lookback time.Duration) ([]domain.NewsItem, error)
}
