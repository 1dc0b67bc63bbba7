package assets

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/vmihailenco/msgpack/v5"
)

// cacheRecord is the msgpack value stored per location.
type cacheRecord struct {
	Location  string    `msgpack:"l"`
	Data      []byte    `msgpack:"d"`
	FetchedAt time.Time `msgpack:"t"`
}

type CacheOptions struct {
	// Dir holds the badger files. Empty runs the cache in memory.
	Dir string
	// TTL expires entries; zero keeps them until invalidated.
	TTL time.Duration
}

// Cache keeps raw asset bytes keyed by location so repeated swaps between the
// same options do not hit remote storage again.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

func NewCache(opts CacheOptions) (*Cache, error) {
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		dbOpts = dbOpts.WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("opening asset cache: %w", err)
	}
	return &Cache{db: db, ttl: opts.TTL, now: time.Now}, nil
}

// Get returns the cached bytes for location, or false on a miss.
func (c *Cache) Get(location string) ([]byte, bool) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(location))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			core.LogWarn("asset cache read %s: %v", location, err)
		}
		return nil, false
	}
	var rec cacheRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		core.LogWarn("asset cache record %s is corrupt: %v", location, err)
		c.Invalidate(location)
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(rec.FetchedAt) > c.ttl {
		c.Invalidate(location)
		return nil, false
	}
	return rec.Data, true
}

func (c *Cache) Put(location string, data []byte) error {
	raw, err := msgpack.Marshal(&cacheRecord{Location: location, Data: data, FetchedAt: c.now()})
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(location), raw)
	})
}

func (c *Cache) Invalidate(location string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(location))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		core.LogWarn("asset cache invalidate %s: %v", location, err)
	}
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// badgerLogger forwards badger output to the engine logger. Info is demoted to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { core.LogError("badger: "+f, v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { core.LogWarn("badger: "+f, v...) }
func (badgerLogger) Infof(f string, v ...interface{})    { core.LogDebug("badger: "+f, v...) }
func (badgerLogger) Debugf(f string, v ...interface{})   { core.LogDebug("badger: "+f, v...) }
