package repositories

import (
	"context"
	"delivery-reschedule-service/internal/domain"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "delivery:state"

// RedisStore keeps the same JSON state document as JSONFileStore under a
// single Redis key.
//
// Mutations are whole-document read-modify-write cycles guarded by WATCH, so
// a concurrent writer aborts the transaction and the cycle is retried against
// the fresh document instead of silently overwriting it.
type RedisStore struct {
	client     *redis.Client
	key        string
	maxRetries int
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key, maxRetries: 5}
}

func (s *RedisStore) FindPackage(ctx context.Context, trackingID string) (*domain.Package, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("find package: %w", err)
	}
	return doc.findPackage(trackingID)
}

func (s *RedisStore) UpdatePackageSchedule(ctx context.Context, trackingID string, newDate string) error {
	return s.update(ctx, "update package schedule", func(doc *stateDocument) error {
		return doc.updateSchedule(trackingID, newDate)
	})
}

func (s *RedisStore) AppendCallLog(ctx context.Context, log domain.CallLog) (int64, error) {
	var id int64
	err := s.update(ctx, "append call log", func(doc *stateDocument) error {
		id = doc.appendCallLog(log)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *RedisStore) MarkIncompleteLogsCompleted(ctx context.Context, trackingID string) error {
	return s.update(ctx, "mark logs completed", func(doc *stateDocument) error {
		doc.markIncompleteCompleted(trackingID)
		return nil
	})
}

func (s *RedisStore) ListCallLogs(ctx context.Context, trackingID string) ([]domain.CallLog, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	return doc.callLogs(trackingID), nil
}

// Replace the stored document with the contents of a seed file.
func (s *RedisStore) Seed(ctx context.Context, seedPath string) error {
	doc, err := readSeedFile(seedPath)
	if err != nil {
		return err
	}

	data, err := doc.encode()
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("seed redis store: set %q: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context) (*stateDocument, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &stateDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", s.key, err)
	}
	return decodeDocument(data)
}

func (s *RedisStore) update(ctx context.Context, op string, fn func(doc *stateDocument) error) error {
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, s.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("get %q: %w", s.key, err)
		}

		doc, err := decodeDocument(data)
		if err != nil {
			return err
		}

		if err := fn(doc); err != nil {
			return err
		}

		out, err := doc.encode()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, out, 0)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	return fmt.Errorf("%s: %w after %d attempts", op, redis.TxFailedErr, s.maxRetries)
}
