package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type SubscriptionRepository struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ChannelStats holds the computed subscription-graph fields for one channel
// as seen by one viewer.
type ChannelStats struct {
	SubscribersCount          int64
	ChannelsSubscribedToCount int64
	IsSubscribed              bool
}

// StatsForChannel counts inbound and outbound edges for the channel and tests
// whether the viewer holds an edge to it. Duplicate edges inflate the counts;
// the schema does not dedupe them.
func (r *SubscriptionRepository) StatsForChannel(ctx context.Context, channelID, viewerID string) (*ChannelStats, error) {
	var stats ChannelStats
	var subscribed int

	err := r.db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM subscriptions WHERE channel_id = ?),
		    (SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = ?),
		    (SELECT EXISTS(SELECT 1 FROM subscriptions WHERE channel_id = ? AND subscriber_id = ?))`,
		channelID, channelID, channelID, viewerID,
	).Scan(&stats.SubscribersCount, &stats.ChannelsSubscribedToCount, &subscribed)
	if err != nil {
		return nil, fmt.Errorf("querying channel stats: %w", err)
	}

	stats.IsSubscribed = subscribed == 1
	return &stats, nil
}

// Toggle removes the subscriber->channel edge if present, creates it
// otherwise. Returns whether the edge exists after the call.
func (r *SubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	var existingID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM subscriptions WHERE subscriber_id = ? AND channel_id = ? LIMIT 1`,
		subscriberID, channelID,
	).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err := generateID("sub")
		if err != nil {
			return false, fmt.Errorf("generating subscription ID: %w", err)
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at) VALUES (?, ?, ?, ?)`,
			id, subscriberID, channelID, time.Now().UTC(),
		)
		if err != nil {
			return false, fmt.Errorf("creating subscription: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("querying subscription: %w", err)
	default:
		_, err = r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, existingID)
		if err != nil {
			return false, fmt.Errorf("deleting subscription: %w", err)
		}
		return false, nil
	}
}
