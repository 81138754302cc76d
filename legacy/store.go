package legacy

import (
	"wallet/db"
	"wallet/interfaces"
	"wallet/keys"
)

// LoadKeyStores reads "key-multi-store". A missing list is empty.
func LoadKeyStores(store interfaces.Store) ([]KeyStore, error) {
	var list []KeyStore
	if _, err := db.GetJSON(store, keys.LegacyMultiKeyStore(), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// LoadSelected reads "key-store", nil when absent.
func LoadSelected(store interfaces.Store) (*KeyStore, error) {
	var ks KeyStore
	found, err := db.GetJSON(store, keys.LegacySelectedKeyStore(), &ks)
	if err != nil || !found {
		return nil, err
	}
	return &ks, nil
}

// SaveKeyStores writes the legacy list and, when selected is set, the
// selected entry.
func SaveKeyStores(store interfaces.Store, list []KeyStore, selected *KeyStore) error {
	if err := db.SetJSON(store, keys.LegacyMultiKeyStore(), list); err != nil {
		return err
	}
	if selected == nil {
		return nil
	}
	return db.SetJSON(store, keys.LegacySelectedKeyStore(), selected)
}
