// Package accounts keeps the accounts provisioned during one bootstrap run.
//
// The registry is the only place credentials live between phases: it is
// created with the run and discarded with it. Nothing is ever reloaded from
// disk, so a phase asking for an account that was not provisioned in the
// same run fails instead of picking up stale state.
package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/creachadair/atomicfile"

	"github.com/kiichain/kiisetup/internal/credentials"
	"github.com/kiichain/kiisetup/internal/nodecli"
	"github.com/kiichain/kiisetup/libs/log"
	tmos "github.com/kiichain/kiisetup/libs/os"
)

// ErrAccountNotFound is returned by Lookup for names not provisioned in
// this run.
var ErrAccountNotFound = errors.New("account not found")

const keyInfoPerm = 0600

// Account is a key known to the node binary.
type Account struct {
	Name     string
	Address  string
	Mnemonic string
	Password string
}

// String omits the secrets.
func (a Account) String() string {
	return fmt.Sprintf("Account{%s %s}", a.Name, a.Address)
}

// Keyring is the subset of the node CLI used to manage keys.
type Keyring interface {
	DeleteKey(ctx context.Context, name, password string) error
	AddKey(ctx context.Context, name, password string) (nodecli.KeyInfo, error)
}

var _ Keyring = (*nodecli.Client)(nil)

// Registry maps account names to the accounts created in this run.
type Registry struct {
	keyring     Keyring
	passwords   credentials.Provider
	keyInfoFile func(name string) string
	logger      log.Logger

	accounts map[string]Account
}

// NewRegistry returns an empty registry. The key creation output of an
// account is persisted to keyInfoFile(name).
func NewRegistry(
	keyring Keyring,
	passwords credentials.Provider,
	keyInfoFile func(name string) string,
	logger log.Logger,
) *Registry {
	return &Registry{
		keyring:     keyring,
		passwords:   passwords,
		keyInfoFile: keyInfoFile,
		logger:      logger,
		accounts:    make(map[string]Account),
	}
}

// AddKey prompts for the password of name, replaces any existing key under
// that name with a fresh one and records it. It returns the address and
// mnemonic of the new key.
func (r *Registry) AddKey(ctx context.Context, name string) (address, mnemonic string, err error) {
	password, err := r.passwords.Password(name)
	if err != nil {
		return "", "", fmt.Errorf("password for account %s: %w", name, err)
	}

	// From here on the keyring no longer matches any earlier record.
	delete(r.accounts, name)

	if err := r.keyring.DeleteKey(ctx, name, password); err != nil {
		r.logger.Info("no existing key found", "account", name)
	} else {
		r.logger.Info("deleted existing key", "account", name)
	}

	info, err := r.keyring.AddKey(ctx, name, password)
	if err != nil {
		return "", "", fmt.Errorf("adding key %s: %w", name, err)
	}
	r.logger.Info("added account", "account", name, "address", info.Address)

	path := r.keyInfoFile(name)
	if err := writeKeyInfo(path, info.Raw); err != nil {
		return "", "", fmt.Errorf("saving key info of %s: %w", name, err)
	}
	r.logger.Info("saved key info", "account", name, "path", path)

	r.accounts[name] = Account{
		Name:     name,
		Address:  info.Address,
		Mnemonic: info.Mnemonic,
		Password: password,
	}

	return info.Address, info.Mnemonic, nil
}

// Lookup returns the account provisioned under name.
func (r *Registry) Lookup(name string) (Account, error) {
	acc, ok := r.accounts[name]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	return acc, nil
}

// Names returns the provisioned account names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeKeyInfo(path string, raw json.RawMessage) error {
	if err := tmos.EnsureDir(filepath.Dir(path), 0700); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return err
	}
	buf.WriteByte('\n')

	_, err := atomicfile.WriteAll(path, &buf, keyInfoPerm)
	return err
}
