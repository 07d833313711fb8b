// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/storage"
)

// CacheRepository implements storage.CacheRepository for BadgerDB.
type CacheRepository struct {
	backend *Backend
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(backend *Backend) *CacheRepository {
	return &CacheRepository{
		backend: backend,
	}
}

// Close releases resources. CacheRepository has no resources to release.
func (r *CacheRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *CacheRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// GetEntry retrieves a cache entry by its fingerprint ID. A hit refreshes
// the entry's last access time, so eviction tracks use rather than age.
func (r *CacheRepository) GetEntry(ctx context.Context, id core.ID) (*core.CacheEntry, error) {
	var result *core.CacheEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCacheKey(id)
		entry, err := readCacheEntry(tx, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return storage.ErrNotFound
		}

		entry.LastAccess = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}

		result = entry
		return tx.Commit()
	}, true)
	return result, err
}

// PutEntry stores a cache entry keyed by its fingerprint ID, replacing any
// existing entry.
func (r *CacheRepository) PutEntry(ctx context.Context, entry *core.CacheEntry) (*core.CacheEntry, error) {
	if entry.Id == 0 {
		return nil, storage.ErrInvalidQuery
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		if entry.LastAccess.IsZero() {
			entry.LastAccess = now
		}
		entry.ResultCount = len(entry.Results)

		if err := tx.Set(makeCacheKey(entry.Id), storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return entry, err
}

// EvictExpired removes entries whose last access is older than the
// retention window. A non-positive retention evicts everything.
func (r *CacheRepository) EvictExpired(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC()
	if retention > 0 {
		cutoff = cutoff.Add(-retention)
	}

	// Collect expired keys first, then delete in a write transaction
	var expired [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cacheRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var entry *core.CacheEntry
			if err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalCacheEntry(val)
				return err
			}); err != nil {
				return err
			}
			if entry == nil {
				continue
			}

			if entry.LastAccess.Before(cutoff) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	if len(expired) == 0 {
		return 0, nil
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range expired {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}

	return len(expired), nil
}

// CountEntries returns the number of cached queries.
func (r *CacheRepository) CountEntries(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cacheRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readCacheEntry reads a cache entry from the transaction.
func readCacheEntry(tx *badger.Txn, key []byte) (*core.CacheEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.CacheEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalCacheEntry(val)
		return err
	})
	return entry, err
}
