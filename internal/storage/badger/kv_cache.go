package badger

import (
	"context"
	"errors"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
)

// KVCache implements the key/value cache on the Badger store. Entry
// TTLs map directly onto Badger's native entry expiry.
type KVCache struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewKVCache(db *BadgerDB, logger arbor.ILogger) *KVCache {
	return &KVCache{db: db, logger: logger}
}

func (c *KVCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.Store().Badger().View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *KVCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return c.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (c *KVCache) Delete(_ context.Context, key string) error {
	return c.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close is a no-op; the shared BadgerDB owns the connection
func (c *KVCache) Close() error { return nil }
