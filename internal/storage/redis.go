package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

var ErrNoReport = errors.New("no report published yet")

// ReportStore hands run reports to the external notifier through a Redis list
// and keeps the latest one for the ops API.
type ReportStore struct {
	client *redis.Client
	key    string
}

func NewReportStore(client *redis.Client, key string) *ReportStore {
	return &ReportStore{client: client, key: key}
}

func (s *ReportStore) latestKey() string {
	return s.key + ":latest"
}

func (s *ReportStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Publish pushes the report onto the notifier queue and records it as the latest.
func (s *ReportStore) Publish(ctx context.Context, report string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key, report)
		pipe.Set(ctx, s.latestKey(), report, 0)
		return nil
	})
	return err
}

// Latest returns the most recently published report.
func (s *ReportStore) Latest(ctx context.Context) (string, error) {
	report, err := s.client.Get(ctx, s.latestKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoReport
	}
	return report, err
}

// Pending returns the number of reports the notifier has not consumed yet.
func (s *ReportStore) Pending(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, s.key).Result()
}
