package db

import (
	"encoding/json"
	"fmt"
	"strings"

	"wallet/interfaces"
	"wallet/keys"
)

var _ interfaces.KVStore = (*Namespace)(nil)

// Namespace is a view of a KVStore where every key is prefixed with
// "<prefix>/".
type Namespace struct {
	store  interfaces.KVStore
	prefix string
}

// NewNamespace returns a prefixed view of store.
func NewNamespace(store interfaces.KVStore, prefix string) *Namespace {
	return &Namespace{store: store, prefix: prefix}
}

// Prefix returns the namespace prefix.
func (n *Namespace) Prefix() string {
	return n.prefix
}

func (n *Namespace) key(k string) string {
	return keys.Join(n.prefix, k)
}

func (n *Namespace) Get(key string) ([]byte, error) {
	return n.store.Get(n.key(key))
}

func (n *Namespace) Set(key string, value []byte) error {
	return n.store.Set(n.key(key), value)
}

func (n *Namespace) Delete(key string) error {
	return n.store.Delete(n.key(key))
}

func (n *Namespace) Apply(tasks ...interfaces.WriteTask) error {
	prefixed := make([]interfaces.WriteTask, len(tasks))
	for i, t := range tasks {
		t.Key = n.key(t.Key)
		prefixed[i] = t
	}
	return n.store.Apply(prefixed...)
}

func (n *Namespace) Scan(prefix string, fn func(key string, value []byte) error) error {
	base := n.prefix + keys.Separator
	return n.store.Scan(base+prefix, func(key string, value []byte) error {
		return fn(strings.TrimPrefix(key, base), value)
	})
}

// GetJSON decodes the JSON value of key into out. It reports false when the
// key does not exist.
func GetJSON(store interfaces.Store, key string, out any) (bool, error) {
	raw, err := store.Get(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value as JSON under key.
func SetJSON(store interfaces.Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Set(key, raw)
}
