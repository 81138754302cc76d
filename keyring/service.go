// keyring/service.go
// Key ring orchestrator: lock gate, selection, coin type finalization and
// legacy migration on top of the vault service and the backend registry.

package keyring

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"wallet/backend"
	"wallet/config"
	"wallet/db"
	"wallet/interfaces"
	"wallet/keys"
	"wallet/legacy"
	"wallet/logs"
	"wallet/types"
)

// SelectionListener is called synchronously with the new selected vault id,
// empty when the selection was cleared. It must not change the selection.
type SelectionListener func(vaultID string)

// Service is one key ring session. It is safe for concurrent use.
type Service struct {
	cfg          config.KeyRingConfig
	vault        interfaces.VaultService
	store        interfaces.Store
	legacyStore  interfaces.Store
	commonCrypto interfaces.CommonCrypto
	registry     *backend.Registry

	mu              sync.RWMutex
	selectedVaultID string
	needMigration   bool

	// held across update, persist and notify of one selection change
	selectMu sync.Mutex

	isMigrating atomic.Bool

	// serializes the check-and-set of the coin type tag
	finalizeMu sync.Mutex

	listenersMu  sync.Mutex
	listeners    map[int]SelectionListener
	nextListener int
}

// NewService wires a session. store holds the key ring state, legacyStore
// the legacy keystore that may need migration.
func NewService(
	cfg config.KeyRingConfig,
	vault interfaces.VaultService,
	store interfaces.Store,
	legacyStore interfaces.Store,
	commonCrypto interfaces.CommonCrypto,
	registry *backend.Registry,
) *Service {
	return &Service{
		cfg:          cfg,
		vault:        vault,
		store:        store,
		legacyStore:  legacyStore,
		commonCrypto: commonCrypto,
		registry:     registry,
		listeners:    make(map[int]SelectionListener),
	}
}

// Init loads the migration flags and restores the persisted selection when
// it still resolves to a vault.
func (s *Service) Init() error {
	var migrated bool
	if _, err := db.GetJSON(s.store, keys.MigrationV1(), &migrated); err != nil {
		return fmt.Errorf("failed to load migration flag: %w", err)
	}
	needMigration := false
	if !migrated {
		list, err := legacy.LoadKeyStores(s.legacyStore)
		if err != nil {
			return fmt.Errorf("failed to read legacy key store: %w", err)
		}
		needMigration = len(list) > 0
	}

	var selected string
	if _, err := db.GetJSON(s.store, keys.SelectedVaultID(), &selected); err != nil {
		return fmt.Errorf("failed to load selected vault: %w", err)
	}
	if selected != "" && s.vault.GetVault(types.CategoryKeyRing, selected) == nil {
		logs.Warn("[keyring] dropping dangling selection %s", selected)
		selected = ""
	}

	s.mu.Lock()
	s.needMigration = needMigration
	s.selectedVaultID = selected
	s.mu.Unlock()

	logs.Info("[keyring] init needMigration=%v selected=%q counts=%v", needMigration, selected, s.CountKeyRingsByType())
	return nil
}

// UnlockKeyRing unlocks the vault, or runs the legacy migration when one is
// pending.
func (s *Service) UnlockKeyRing(password string) error {
	if s.NeedMigration() {
		return s.migrate(password)
	}
	return s.vault.Unlock(password)
}

// LockKeyRing locks the vault and drops cached key material.
func (s *Service) LockKeyRing() {
	s.vault.Lock()
	s.registry.Purge()
}

func (s *Service) NeedMigration() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.needMigration
}

func (s *Service) IsMigrating() bool {
	return s.isMigrating.Load()
}

// KeyRingStatus reports a pending migration as locked.
func (s *Service) KeyRingStatus() types.KeyRingStatus {
	if s.NeedMigration() {
		return types.StatusLocked
	}
	if !s.vault.IsSignedUp() || len(s.vault.GetVaults(types.CategoryKeyRing)) == 0 {
		return types.StatusEmpty
	}
	if s.vault.IsLocked() {
		return types.StatusLocked
	}
	return types.StatusUnlocked
}

func (s *Service) keyRingVaults() []*types.Vault {
	return s.vault.GetVaults(types.CategoryKeyRing)
}

func (s *Service) GetKeyInfos() []types.KeyInfo {
	s.mu.RLock()
	selected := s.selectedVaultID
	s.mu.RUnlock()

	vaults := s.keyRingVaults()
	infos := make([]types.KeyInfo, 0, len(vaults))
	for _, v := range vaults {
		infos = append(infos, types.KeyInfo{
			ID:          v.ID,
			Name:        v.Name(),
			Type:        v.Type(),
			IsSelected:  v.ID == selected,
			Insensitive: v.Insensitive,
		})
	}
	return infos
}

func (s *Service) GetKeyInfo(vaultID string) (types.KeyInfo, bool) {
	for _, info := range s.GetKeyInfos() {
		if info.ID == vaultID {
			return info, true
		}
	}
	return types.KeyInfo{}, false
}

// KeyRingMeta returns the typed metadata of a vault.
func (s *Service) KeyRingMeta(vaultID string) (types.KeyRingMeta, error) {
	v, err := s.getVault(vaultID)
	if err != nil {
		return nil, err
	}
	return types.ParseKeyRingMeta(v, s.cfg.CoinTypeTag)
}

// CountKeyRingsByType counts vaults per kind. Private keys from a social
// login are counted as web3_auth_<provider>.
func (s *Service) CountKeyRingsByType() map[string]int {
	counts := map[string]int{}
	for _, v := range s.keyRingVaults() {
		kind := string(v.Type())
		if kind == "" {
			continue
		}
		if v.Type() == types.KeyRingPrivateKey {
			meta, err := types.ParseKeyRingMeta(v, s.cfg.CoinTypeTag)
			if pk, ok := meta.(types.PrivateKeyMeta); err == nil && ok && pk.Web3Auth != nil && pk.Web3Auth.Type != "" {
				kind = "web3_auth_" + pk.Web3Auth.Type
			}
		}
		counts["keyring_"+kind+"_num"]++
	}
	return counts
}

// SelectedVaultID returns the selection, falling back to the first vault
// when the selection no longer resolves. An empty ring is ErrNotFound.
func (s *Service) SelectedVaultID() (string, error) {
	s.mu.RLock()
	selected := s.selectedVaultID
	s.mu.RUnlock()

	if selected != "" && s.vault.GetVault(types.CategoryKeyRing, selected) != nil {
		return selected, nil
	}
	vaults := s.keyRingVaults()
	if len(vaults) == 0 {
		return "", fmt.Errorf("key ring is empty: %w", types.ErrNotFound)
	}
	return vaults[0].ID, nil
}

// SelectKeyRing makes vaultID the selection and persists it.
func (s *Service) SelectKeyRing(vaultID string) error {
	if s.vault.IsLocked() {
		return fmt.Errorf("key ring is locked: %w", types.ErrLocked)
	}
	if s.vault.GetVault(types.CategoryKeyRing, vaultID) == nil {
		return fmt.Errorf("unknown vault %s: %w", vaultID, types.ErrNotFound)
	}
	return s.setSelected(vaultID)
}

// setSelected updates the selection, writes it through and notifies
// listeners. The persistence error is returned after listeners ran.
// Changes are serialized so the stored value, the in-memory value and the
// last notification always agree.
func (s *Service) setSelected(vaultID string) error {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	s.mu.Lock()
	changed := s.selectedVaultID != vaultID
	s.selectedVaultID = vaultID
	s.mu.Unlock()

	err := s.persistSelection(vaultID)
	if changed {
		s.notify(vaultID)
	}
	if err != nil {
		return fmt.Errorf("failed to persist selection: %w", err)
	}
	return nil
}

func (s *Service) persistSelection(vaultID string) error {
	if vaultID == "" {
		return s.store.Delete(keys.SelectedVaultID())
	}
	return db.SetJSON(s.store, keys.SelectedVaultID(), vaultID)
}

// Subscribe registers fn for selection changes. The returned func removes it.
func (s *Service) Subscribe(fn SelectionListener) (cancel func()) {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Service) notify(vaultID string) {
	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]SelectionListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(vaultID)
	}
}

// getVault resolves a key ring vault or fails with ErrNotFound.
func (s *Service) getVault(vaultID string) (*types.Vault, error) {
	v := s.vault.GetVault(types.CategoryKeyRing, vaultID)
	if v == nil {
		return nil, fmt.Errorf("vault %s: %w", vaultID, types.ErrNotFound)
	}
	return v, nil
}

func (s *Service) checkUnlocked() error {
	if s.vault.IsLocked() {
		return fmt.Errorf("key ring is locked: %w", types.ErrLocked)
	}
	return nil
}
