package repository

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/stridewell/step-engine/internal/core/domain"
)

var (
	bucketDailySteps = []byte("daily_steps")
	bucketCounters   = []byte("counters")
	keyCurrentSteps  = []byte("current_steps")
	boltOpenTimeout  = 1 * time.Second
)

var _ domain.StepStore = (*BoltStepStore)(nil)

// BoltStepStore is the device-local durable step store: one bbolt file
// holding the per-day counters and the cumulative total. Every write
// is a committed transaction, so a crash mid-walk loses at most the
// step being written.
type BoltStepStore struct {
	db *bolt.DB
}

func NewBoltStepStore(path string) (*BoltStepStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open step store at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDailySteps); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketCounters)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize step store buckets: %w", err)
	}

	return &BoltStepStore{db: db}, nil
}

func (s *BoltStepStore) Close() error {
	return s.db.Close()
}

func (s *BoltStepStore) Snapshot() (domain.StepSnapshot, error) {
	snapshot := domain.StepSnapshot{
		DailySteps: make(map[string]int),
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		daily := tx.Bucket(bucketDailySteps)
		if err := daily.ForEach(func(k, v []byte) error {
			snapshot.DailySteps[string(k)] = int(decodeInt(v))
			return nil
		}); err != nil {
			return err
		}

		if v := tx.Bucket(bucketCounters).Get(keyCurrentSteps); v != nil {
			snapshot.CurrentSteps = int(decodeInt(v))
		}
		return nil
	})
	if err != nil {
		return domain.StepSnapshot{}, fmt.Errorf("failed to read step snapshot: %w", err)
	}

	return snapshot, nil
}

func (s *BoltStepStore) SaveDaily(date string, steps int, total int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketDailySteps).Put([]byte(date), encodeInt(uint64(steps))); err != nil {
			return err
		}
		return tx.Bucket(bucketCounters).Put(keyCurrentSteps, encodeInt(uint64(total)))
	})
}

func (s *BoltStepStore) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketDailySteps); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(bucketDailySteps); err != nil {
			return err
		}
		return tx.Bucket(bucketCounters).Put(keyCurrentSteps, encodeInt(0))
	})
}

func encodeInt(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeInt(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
