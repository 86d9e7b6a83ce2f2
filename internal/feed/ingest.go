package feed

import (
	"context"

	"go.uber.org/zap"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/solana"
	"solana-prepump-engine/internal/storage"
)

// TradeSubscriber adds mints to the live trade subscription. The
// listener implements it; nil disables per-listing subscriptions.
type TradeSubscriber interface {
	SubscribeTrades(ctx context.Context, mints ...string) error
}

// IngestEvents drains the stream: listing events register assets and
// join the trade subscription, buy events feed the activity tracker.
// Returns when the context ends or the channel closes.
func IngestEvents(ctx context.Context, events <-chan Event, assets storage.AssetStore, tracker *ActivityTracker, trades TradeSubscriber, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}

			switch event.Type {
			case EventCreate:
				if err := solana.ValidateAddress(event.Mint); err != nil {
					logger.Warn("listing with invalid mint",
						zap.String("mint", event.Mint),
						zap.Error(err))
					continue
				}
				asset := &domain.Asset{
					Address:     event.Mint,
					Name:        event.Name,
					Symbol:      event.Symbol,
					FirstSeenAt: event.ReceivedAt,
					CreatedAt:   event.ReceivedAt,
				}
				if err := assets.Upsert(ctx, asset); err != nil {
					logger.Warn("register asset",
						zap.String("mint", event.Mint),
						zap.Error(err))
					continue
				}
				if trades != nil {
					if err := trades.SubscribeTrades(ctx, event.Mint); err != nil {
						logger.Warn("subscribe trades",
							zap.String("mint", event.Mint),
							zap.Error(err))
					}
				}
				logger.Info("new listing",
					zap.String("mint", event.Mint),
					zap.String("symbol", event.Symbol))

			case EventBuy:
				tracker.RecordBuy(event.Mint, event.Trader)
			}
		}
	}
}
