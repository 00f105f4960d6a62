package pebble

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/arbiter/pkg/db"
)

const mb = 1024 * 1024

// Options tune the on-disk store. Zero values fall back to the defaults below.
type Options struct {
	CacheSize    int64
	MemTableSize uint64
}

var defaultOptions = Options{
	CacheSize:    64 * mb,
	MemTableSize: 32 * mb,
}

// KVStore is a db.KVStore backed by a pebble database.
type KVStore struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

var _ db.KVStore = (*KVStore)(nil)

// NewKVStore opens a store on an in-memory filesystem. Nothing survives Close.
func NewKVStore() (*KVStore, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

// Open opens (or creates) a store rooted at path.
func Open(path string, opts Options) (*KVStore, error) {
	if path == "" {
		return nil, errors.New("kv-store: empty path")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultOptions.CacheSize
	}
	if opts.MemTableSize == 0 {
		opts.MemTableSize = defaultOptions.MemTableSize
	}

	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	return open(path, &pebble.Options{
		Cache:        cache,
		MemTableSize: opts.MemTableSize,
	})
}

func open(path string, opts *pebble.Options) (*KVStore, error) {
	pdb, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("kv-store: open %q: %w", path, err)
	}
	return &KVStore{db: pdb}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close() //nolint:errcheck

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	return p.db.Set(key, value, pebble.Sync)
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	return p.db.Delete(key, pebble.Sync)
}

// Close closes the underlying database. Closing twice is a no-op.
func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

func (p *KVStore) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
