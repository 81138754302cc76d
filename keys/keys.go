// keys/keys.go
// Every persisted key of the key ring is built here, so the storage layout
// can be read in one place.
package keys

import (
	"fmt"
	"strings"
)

// Separator joins namespace and key segments.
const Separator = "/"

// Join builds "a/b/c", skipping empty segments.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, Separator)
}

// ===================== key ring state =====================

// SelectedVaultID the selected key ring vault id
// e.g. selectedVaultId
func SelectedVaultID() string {
	return "selectedVaultId"
}

// MigrationV1 global flag set once the legacy keystore is migrated
// e.g. migration/v1
func MigrationV1() string {
	return "migration/v1"
}

// MigratedKeyStore per legacy entry flag
// e.g. migration/v1/keyStore/<id>
func MigratedKeyStore(id string) string {
	return fmt.Sprintf("%s/keyStore/%s", MigrationV1(), id)
}

// ===================== legacy keystore =====================

// LegacyMultiKeyStore the ordered list of legacy keystores
func LegacyMultiKeyStore() string {
	return "key-multi-store"
}

// LegacySelectedKeyStore the keystore selected in the legacy wallet
func LegacySelectedKeyStore() string {
	return "key-store"
}

// ===================== vault =====================

// VaultUserPassword the encrypted master key record
// e.g. userPassword
func VaultUserPassword() string {
	return "userPassword"
}

// VaultCategoryPrefix prefix of all records of a category
// e.g. keyRing/
func VaultCategoryPrefix(category string) string {
	return category + Separator
}

// VaultRecord one vault record
// e.g. keyRing/<id>
func VaultRecord(category, id string) string {
	return VaultCategoryPrefix(category) + id
}

// VaultOrder the insertion order of a category
// e.g. order/keyRing
func VaultOrder(category string) string {
	return Join("order", category)
}
