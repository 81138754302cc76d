package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"wallet/config"
	"wallet/keyring"
	"wallet/legacy"
	"wallet/logs"
	"wallet/types"
	"wallet/utils"
)

const usage = `usage: keyring [-data dir] [-log level] <command> [flags]

commands:
  status          print key ring status and selection
  list            list vaults
  new-mnemonic    generate a mnemonic and create a vault from it
  add-mnemonic    create a vault from an existing mnemonic
  add-key         create a vault from a hex private key
  select          select a vault
  rename          rename a vault
  address         print addresses of a vault
  sign            sign hex data with a vault
  show            print the mnemonic or private key of a vault
  delete          delete a vault
  export          export vaults in the legacy keystore shape
  import-legacy   load a legacy keystore list and migrate it
  passwd          change the password
`

func main() {
	var (
		dataPath = flag.String("data", "./data/keyring", "database directory")
		logLevel = flag.String("log", "warn", "log level: trace|debug|verbose|info|warn|error")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	cfg.Storage.Path = *dataPath
	cfg.Log.Level = *logLevel

	s, err := keyring.Open(cfg)
	if err != nil {
		logs.Error("failed to open key ring: %v", err)
		os.Exit(1)
	}
	err = run(s, flag.Arg(0), flag.Args()[1:])
	s.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(s *keyring.Session, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var (
		password = fs.String("password", os.Getenv("KEYRING_PASSWORD"), "user password (default $KEYRING_PASSWORD)")
		id       = fs.String("id", "", "vault id (default: selected vault)")
		name     = fs.String("name", "", "vault name")
	)

	switch cmd {
	case "status":
		if err := fs.Parse(args); err != nil {
			return err
		}
		selected, _ := s.SelectedVaultID()
		return printJSON(map[string]any{
			"status":        s.KeyRingStatus(),
			"needMigration": s.NeedMigration(),
			"selected":      selected,
			"counts":        s.CountKeyRingsByType(),
		})

	case "list":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return printJSON(s.GetKeyInfos())

	case "new-mnemonic", "add-mnemonic":
		phrase := fs.String("mnemonic", "", "BIP39 phrase (add-mnemonic)")
		bits := fs.Int("bits", 128, "entropy bits (new-mnemonic)")
		account := fs.Int("account", 0, "BIP44 account")
		index := fs.Int("index", 0, "BIP44 address index")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if cmd == "new-mnemonic" {
			generated, err := utils.GenerateMnemonic(*bits)
			if err != nil {
				return err
			}
			*phrase = generated
		}
		if err := unlockIfSignedUp(s, *password); err != nil {
			return err
		}
		path := types.BIP44Path{Account: *account, AddressIndex: *index}
		vaultID, err := s.CreateMnemonicKeyRing(*phrase, path, *name, *password)
		if err != nil {
			return err
		}
		out := map[string]string{"id": vaultID}
		if cmd == "new-mnemonic" {
			out["mnemonic"] = *phrase
		}
		return printJSON(out)

	case "add-key":
		key := fs.String("key", "", "hex private key")
		if err := fs.Parse(args); err != nil {
			return err
		}
		priv, err := hex.DecodeString(trimHex(*key))
		if err != nil {
			return fmt.Errorf("invalid private key: %w", err)
		}
		if err := unlockIfSignedUp(s, *password); err != nil {
			return err
		}
		vaultID, err := s.CreatePrivateKeyKeyRing(priv, nil, *name, *password)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{"id": vaultID})

	case "select", "rename":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := s.UnlockKeyRing(*password); err != nil {
			return err
		}
		if cmd == "rename" {
			vaultID, err := resolveID(s, *id)
			if err != nil {
				return err
			}
			return s.ChangeKeyRingName(vaultID, *name)
		}
		return s.SelectKeyRing(*id)

	case "address":
		coinType := fs.Int("coin-type", -1, "preview a coin type on a not finalized vault")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := s.UnlockKeyRing(*password); err != nil {
			return err
		}
		vaultID, err := resolveID(s, *id)
		if err != nil {
			return err
		}
		var addr keyring.KeyAddress
		if *coinType >= 0 {
			addr, err = s.GetKeyAddressWithNotFinalizedCoinType(vaultID, *coinType)
		} else {
			addr, err = s.GetKeyAddress(vaultID)
		}
		if err != nil {
			return err
		}
		return printJSON(addr)

	case "sign":
		data := fs.String("data", "", "hex data to sign")
		digest := fs.String("digest", string(types.DigestSha256), "sha256|keccak256")
		if err := fs.Parse(args); err != nil {
			return err
		}
		raw, err := hex.DecodeString(trimHex(*data))
		if err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
		if err := s.UnlockKeyRing(*password); err != nil {
			return err
		}
		vaultID, err := resolveID(s, *id)
		if err != nil {
			return err
		}
		sig, err := s.Sign(vaultID, raw, types.DigestMethod(*digest))
		if err != nil {
			return err
		}
		return printJSON(sig)

	case "show":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := s.UnlockKeyRing(*password); err != nil {
			return err
		}
		vaultID, err := resolveID(s, *id)
		if err != nil {
			return err
		}
		secret, err := s.ShowSensitiveKeyRingData(vaultID, *password)
		if err != nil {
			return err
		}
		fmt.Println(secret)
		return nil

	case "delete":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := s.UnlockKeyRing(*password); err != nil {
			return err
		}
		wasSelected, err := s.DeleteKeyRing(*id, *password)
		if err != nil {
			return err
		}
		return printJSON(map[string]bool{"wasSelected": wasSelected})

	case "export":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := s.UnlockKeyRing(*password); err != nil {
			return err
		}
		data, err := s.ExportKeyRingData(*password)
		if err != nil {
			return err
		}
		return printJSON(data)

	case "import-legacy":
		file := fs.String("file", "", "JSON array of legacy keystores")
		selectedIdx := fs.Int("selected", -1, "index of the selected keystore")
		if err := fs.Parse(args); err != nil {
			return err
		}
		raw, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		var list []legacy.KeyStore
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("invalid keystore file: %w", err)
		}
		var selected *legacy.KeyStore
		if *selectedIdx >= 0 && *selectedIdx < len(list) {
			selected = &list[*selectedIdx]
		}
		if err := legacy.SaveKeyStores(s.LegacyStore, list, selected); err != nil {
			return err
		}
		if err := s.Init(); err != nil {
			return err
		}
		if err := s.CheckLegacyKeyRingPassword(*password); err != nil {
			return err
		}
		if err := s.UnlockKeyRing(*password); err != nil {
			return err
		}
		return printJSON(s.GetKeyInfos())

	case "passwd":
		next := fs.String("new", "", "new password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := s.UnlockKeyRing(*password); err != nil {
			return err
		}
		return s.ChangeUserPassword(*password, *next)

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

// unlockIfSignedUp unlocks an existing ring. A fresh ring is signed up by
// the first create call.
func unlockIfSignedUp(s *keyring.Session, password string) error {
	if s.KeyRingStatus() == types.StatusEmpty && !s.Vault.IsSignedUp() {
		return nil
	}
	return s.UnlockKeyRing(password)
}

func resolveID(s *keyring.Session, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	return s.SelectedVaultID()
}

func trimHex(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
