package baseline

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"sort"

	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var baselineBucket = []byte("baselines")

// BoltStore keeps baselines in a single-file key-value store under the
// workdir, for deployments without a relational database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the baseline database in workdir.
func NewBoltStore(workdir string) (*BoltStore, error) {
	db, err := bolt.Open(filepath.Join(workdir, "baselines.db"), 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open baseline store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(baselineBucket)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "init baseline bucket")
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying file handle.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Save(_ context.Context, b *domain.Baseline) error {
	data, err := json.Marshal(b)
	if err != nil {
		return errors.Wrap(err, "marshal baseline")
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(b.ID))
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(baselineBucket).Put(key, data)
	})
	return errors.Wrap(err, "save baseline")
}

func (s *BoltStore) LoadLatest(ctx context.Context) (*domain.Baseline, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range all {
		if b.Status == domain.BaselineActive {
			return b, nil
		}
	}
	return nil, ErrNoBaseline
}

func (s *BoltStore) LoadAll(_ context.Context) ([]*domain.Baseline, error) {
	var out []*domain.Baseline
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(baselineBucket).ForEach(func(_, v []byte) error {
			var b domain.Baseline
			if err := json.Unmarshal(v, &b); err != nil {
				return err
			}
			out = append(out, &b)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "load baselines")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}
