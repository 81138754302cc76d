// vault/service.go
// Encrypted vault storage. Sensitive halves are sealed with a random master
// key; the master key is sealed with a scrypt key of the user password.

package vault

import (
	"encoding/json"
	"fmt"
	"sync"

	"wallet/config"
	"wallet/db"
	"wallet/interfaces"
	"wallet/keys"
	"wallet/logs"
	"wallet/types"

	"github.com/google/uuid"
)

var _ interfaces.VaultService = (*Service)(nil)

// Service implements interfaces.VaultService on a KVStore.
type Service struct {
	mu    sync.RWMutex
	store interfaces.KVStore
	cfg   config.VaultConfig

	signedUp  bool
	masterKey []byte // nil while locked
}

// New opens the vault stored in store. The vault starts locked.
func New(store interfaces.KVStore, cfg config.VaultConfig) (*Service, error) {
	s := &Service{store: store, cfg: cfg}
	var rec passwordRecord
	found, err := db.GetJSON(store, keys.VaultUserPassword(), &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault password record: %w", err)
	}
	s.signedUp = found
	return s, nil
}

func (s *Service) IsSignedUp() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signedUp
}

func (s *Service) IsLocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.masterKey == nil
}

// SignUp creates the master key and leaves the vault unlocked.
func (s *Service) SignUp(password string) error {
	if password == "" {
		return fmt.Errorf("password is empty: %w", types.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signedUp {
		return fmt.Errorf("vault is already signed up: %w", types.ErrValidation)
	}

	masterKey, err := randomBytes(masterKeyLen)
	if err != nil {
		return err
	}
	rec, err := newPasswordRecord(s.cfg, password, masterKey)
	if err != nil {
		return err
	}
	if err := db.SetJSON(s.store, keys.VaultUserPassword(), rec); err != nil {
		return err
	}
	s.signedUp = true
	s.masterKey = masterKey
	logs.Info("[vault] signed up")
	return nil
}

func (s *Service) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.passwordRecord()
	if err != nil {
		return err
	}
	masterKey, err := rec.masterKey(password)
	if err != nil {
		return err
	}
	s.masterKey = masterKey
	logs.Debug("[vault] unlocked")
	return nil
}

func (s *Service) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	wipe(s.masterKey)
	s.masterKey = nil
	logs.Debug("[vault] locked")
}

// passwordRecord must be called with s.mu held.
func (s *Service) passwordRecord() (*passwordRecord, error) {
	if !s.signedUp {
		return nil, fmt.Errorf("vault is not signed up: %w", types.ErrValidation)
	}
	var rec passwordRecord
	found, err := db.GetJSON(s.store, keys.VaultUserPassword(), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("vault password record missing: %w", types.ErrNotFound)
	}
	return &rec, nil
}

func (s *Service) CheckUserPassword(password string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.passwordRecord()
	if err != nil {
		return err
	}
	key, err := rec.masterKey(password)
	if err != nil {
		return err
	}
	wipe(key)
	return nil
}

// ChangeUserPassword rewraps the master key. Vault records are untouched.
func (s *Service) ChangeUserPassword(prevPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("new password is empty: %w", types.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.passwordRecord()
	if err != nil {
		return err
	}
	masterKey, err := rec.masterKey(prevPassword)
	if err != nil {
		return err
	}
	next, err := newPasswordRecord(s.cfg, newPassword, masterKey)
	if err != nil {
		return err
	}
	if err := db.SetJSON(s.store, keys.VaultUserPassword(), next); err != nil {
		return err
	}
	logs.Info("[vault] user password changed")
	return nil
}

// Decrypt opens a sealed sensitive half.
func (s *Service) Decrypt(sensitive []byte) (types.PlainObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.masterKey == nil {
		return nil, fmt.Errorf("vault is locked: %w", types.ErrLocked)
	}
	plain, err := open(s.masterKey, sensitive)
	if err != nil {
		return nil, fmt.Errorf("decrypt sensitive data: %w", types.ErrAuth)
	}
	out := types.PlainObject{}
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, fmt.Errorf("decode sensitive data: %w", err)
	}
	return out, nil
}

func (s *Service) encrypt(sensitive types.PlainObject) ([]byte, error) {
	if s.masterKey == nil {
		return nil, fmt.Errorf("vault is locked: %w", types.ErrLocked)
	}
	plain, err := json.Marshal(sensitive)
	if err != nil {
		return nil, fmt.Errorf("encode sensitive data: %w", err)
	}
	return seal(s.masterKey, plain)
}

// GetVault returns nil when the vault is missing or unreadable.
func (s *Service) GetVault(category, id string) *types.Vault {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.readVault(category, id)
	if err != nil {
		logs.Error("[vault] read %s/%s: %v", category, id, err)
		return nil
	}
	return v
}

// GetVaults returns the vaults of category in insertion order.
func (s *Service) GetVaults(category string) []*types.Vault {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, err := s.order(category)
	if err != nil {
		logs.Error("[vault] read order of %s: %v", category, err)
		return nil
	}
	out := make([]*types.Vault, 0, len(ids))
	for _, id := range ids {
		v, err := s.readVault(category, id)
		if err != nil {
			logs.Error("[vault] read %s/%s: %v", category, id, err)
			continue
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// AddVault seals sensitive and stores a new vault. It needs the vault unlocked.
func (s *Service) AddVault(category string, insensitive, sensitive types.PlainObject) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.encrypt(sensitive)
	if err != nil {
		return "", err
	}
	v := &types.Vault{
		ID:          uuid.NewString(),
		Insensitive: types.CloneObject(insensitive),
		Sensitive:   sealed,
	}
	if v.Insensitive == nil {
		v.Insensitive = types.PlainObject{}
	}
	record, err := encodeRecord(v)
	if err != nil {
		return "", err
	}
	ids, err := s.order(category)
	if err != nil {
		return "", err
	}
	order, err := json.Marshal(append(ids, v.ID))
	if err != nil {
		return "", err
	}

	if err := s.store.Apply(
		interfaces.WriteTask{Key: keys.VaultRecord(category, v.ID), Value: record, Op: interfaces.OpSet},
		interfaces.WriteTask{Key: keys.VaultOrder(category), Value: order, Op: interfaces.OpSet},
	); err != nil {
		return "", fmt.Errorf("failed to add vault: %w", err)
	}
	logs.Debug("[vault] added %s/%s", category, v.ID)
	return v.ID, nil
}

func (s *Service) RemoveVault(category, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.order(category)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(ids))
	found := false
	for _, existing := range ids {
		if existing == id {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return fmt.Errorf("vault %s/%s: %w", category, id, types.ErrNotFound)
	}
	order, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	if err := s.store.Apply(
		interfaces.WriteTask{Key: keys.VaultRecord(category, id), Op: interfaces.OpDelete},
		interfaces.WriteTask{Key: keys.VaultOrder(category), Value: order, Op: interfaces.OpSet},
	); err != nil {
		return fmt.Errorf("failed to remove vault: %w", err)
	}
	logs.Debug("[vault] removed %s/%s", category, id)
	return nil
}

// SetAndMergeInsensitiveToVault shallow-merges patch into the insensitive half.
func (s *Service) SetAndMergeInsensitiveToVault(category, id string, patch types.PlainObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.readVault(category, id)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("vault %s/%s: %w", category, id, types.ErrNotFound)
	}
	for k, val := range types.CloneObject(patch) {
		v.Insensitive[k] = val
	}
	record, err := encodeRecord(v)
	if err != nil {
		return err
	}
	return s.store.Set(keys.VaultRecord(category, id), record)
}

// ClearAll checks password, wipes every record and signs the vault out.
func (s *Service) ClearAll(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.passwordRecord()
	if err != nil {
		return err
	}
	key, err := rec.masterKey(password)
	if err != nil {
		return err
	}
	wipe(key)

	var tasks []interfaces.WriteTask
	if err := s.store.Scan("", func(k string, _ []byte) error {
		tasks = append(tasks, interfaces.WriteTask{Key: k, Op: interfaces.OpDelete})
		return nil
	}); err != nil {
		return err
	}
	if err := s.store.Apply(tasks...); err != nil {
		return fmt.Errorf("failed to clear vault: %w", err)
	}

	wipe(s.masterKey)
	s.masterKey = nil
	s.signedUp = false
	logs.Info("[vault] cleared %d records", len(tasks))
	return nil
}

// readVault returns (nil, nil) for a missing vault. Callers hold s.mu.
func (s *Service) readVault(category, id string) (*types.Vault, error) {
	raw, err := s.store.Get(keys.VaultRecord(category, id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return decodeRecord(raw)
}

func (s *Service) order(category string) ([]string, error) {
	var ids []string
	if _, err := db.GetJSON(s.store, keys.VaultOrder(category), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
