package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
)

// walletFile is the on-disk JSON form of a wallet.
type walletFile struct {
	Version       int            `json:"version"`
	Network       string         `json:"network"`
	CreatedAt     time.Time      `json:"created_at"`
	EncryptedSeed []byte         `json:"encrypted_seed"`
	Addresses     []AddressEntry `json:"addresses"`
}

// AddressEntry records one derived address of a wallet.
type AddressEntry struct {
	Account uint32 `json:"account"`
	Change  uint32 `json:"change"`
	Index   uint32 `json:"index"`
	Address string `json:"address"` // bech32
}

// Path returns the derivation path of the entry.
func (e AddressEntry) Path() []uint32 {
	return AccountPath(e.Account, e.Change, e.Index)
}

// Keystore keeps encrypted wallets in one directory, one file per wallet.
type Keystore struct {
	dir string
}

// NewKeystore opens the keystore in dir, creating it if needed.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

func (ks *Keystore) path(name string) string {
	return filepath.Join(ks.dir, name+".wallet")
}

// Create stores seed encrypted under password as wallet name.
func (ks *Keystore) Create(name, network string, seed, password []byte, params EncryptionParams) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid wallet name %q", name)
	}
	path := ks.path(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}
	sealed, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}
	return ks.write(path, &walletFile{
		Version:       1,
		Network:       network,
		CreatedAt:     time.Now().UTC(),
		EncryptedSeed: sealed,
		Addresses:     []AddressEntry{},
	})
}

// Unlock decrypts wallet name and returns its seed.
func (ks *Keystore) Unlock(name string, password []byte) ([]byte, error) {
	wf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(wf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("unlock wallet %q: %w", name, err)
	}
	return seed, nil
}

// Network returns the network a wallet was created for.
func (ks *Keystore) Network(name string) (string, error) {
	wf, err := ks.read(name)
	if err != nil {
		return "", err
	}
	return wf.Network, nil
}

// AddAddress records a derived address. Recording the same path with the
// same address again is a no-op.
func (ks *Keystore) AddAddress(name string, entry AddressEntry) error {
	wf, err := ks.read(name)
	if err != nil {
		return err
	}
	for _, e := range wf.Addresses {
		if e.Account == entry.Account && e.Change == entry.Change && e.Index == entry.Index {
			if e.Address == entry.Address {
				return nil
			}
			return fmt.Errorf("path %s already holds %s", FormatPath(e.Path()), e.Address)
		}
	}
	wf.Addresses = append(wf.Addresses, entry)
	return ks.write(ks.path(name), wf)
}

// Addresses returns the derived addresses of wallet name.
func (ks *Keystore) Addresses(name string) ([]AddressEntry, error) {
	wf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	return wf.Addresses, nil
}

// NextIndex returns the first unused index on the given chain of account.
func (ks *Keystore) NextIndex(name string, account, change uint32) (uint32, error) {
	entries, err := ks.Addresses(name)
	if err != nil {
		return 0, err
	}
	var next uint32
	for _, e := range entries {
		if e.Account == account && e.Change == change && e.Index >= next {
			next = e.Index + 1
		}
	}
	return next, nil
}

// List returns the names of all wallets.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".wallet" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".wallet"))
	}
	return names, nil
}

func (ks *Keystore) write(path string, wf *walletFile) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) read(name string) (*walletFile, error) {
	data, err := os.ReadFile(ks.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if wf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet version: %d", wf.Version)
	}
	return &wf, nil
}
