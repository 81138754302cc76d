package db

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"wallet/config"
	"wallet/interfaces"
	"wallet/logs"

	"github.com/dgraph-io/badger/v2"
)

var _ interfaces.KVStore = (*Manager)(nil)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("database is not initialized or closed")

// Manager wraps a BadgerDB instance.
type Manager struct {
	Db *badger.DB
	mu sync.RWMutex
}

// NewManager opens the store described by cfg.
func NewManager(cfg config.StorageConfig) (*Manager, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// badger v2 does not create parent directories
		if err := os.MkdirAll(cfg.Path, 0700); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)
	if cfg.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logs.Debug("[db] opened store path=%q inMemory=%v", cfg.Path, cfg.InMemory)
	return &Manager{Db: db}, nil
}

// NewMemoryManager opens an in-memory store.
func NewMemoryManager() (*Manager, error) {
	return NewManager(config.StorageConfig{InMemory: true})
}

func (manager *Manager) db() (*badger.DB, error) {
	manager.mu.RLock()
	db := manager.Db
	manager.mu.RUnlock()
	if db == nil {
		return nil, ErrClosed
	}
	return db, nil
}

// Get returns the value of key, or nil when it does not exist.
func (manager *Manager) Get(key string) ([]byte, error) {
	db, err := manager.db()
	if err != nil {
		return nil, err
	}

	var value []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set writes key synchronously.
func (manager *Manager) Set(key string, value []byte) error {
	return manager.Apply(interfaces.WriteTask{Key: key, Value: value, Op: interfaces.OpSet})
}

// Delete removes key; deleting a missing key is not an error.
func (manager *Manager) Delete(key string) error {
	return manager.Apply(interfaces.WriteTask{Key: key, Op: interfaces.OpDelete})
}

// Apply commits all tasks in a single transaction.
func (manager *Manager) Apply(tasks ...interfaces.WriteTask) error {
	if len(tasks) == 0 {
		return nil
	}
	db, err := manager.db()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		for _, task := range tasks {
			switch task.Op {
			case interfaces.OpSet:
				if err := txn.Set([]byte(task.Key), task.Value); err != nil {
					return fmt.Errorf("set %s: %w", task.Key, err)
				}
			case interfaces.OpDelete:
				if err := txn.Delete([]byte(task.Key)); err != nil {
					return fmt.Errorf("delete %s: %w", task.Key, err)
				}
			default:
				return fmt.Errorf("unknown write op %d", task.Op)
			}
		}
		return nil
	})
}

// Scan calls fn for every key with the given prefix, in key order.
func (manager *Manager) Scan(prefix string, fn func(key string, value []byte) error) error {
	db, err := manager.db()
	if err != nil {
		return err
	}
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(string(item.KeyCopy(nil)), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database. It is safe to call twice.
func (manager *Manager) Close() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.Db == nil {
		return
	}
	if err := manager.Db.Close(); err != nil {
		logs.Error("[db.Close] close failed: %v", err)
	}
	manager.Db = nil
}
