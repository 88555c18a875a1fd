// Package nodecli drives the node binary through its command line.
//
// Every call passes --home so the binary operates on the same directory the
// bootstrap run manages. Commands that unlock a key receive the password on
// standard input through runner.Runner.RunWithPassword.
package nodecli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/kiichain/kiisetup/internal/runner"
)

// KeyInfo is the structured output of `keys add --output json`.
type KeyInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Address  string `json:"address"`
	PubKey   string `json:"pubkey"`
	Mnemonic string `json:"mnemonic"`

	// Raw holds the output exactly as printed by the binary.
	Raw json.RawMessage `json:"-"`
}

// VersionInfo is the structured output of `version --long --output json`.
type VersionInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTags string `json:"build_tags"`
	Go        string `json:"go"`
}

// Client runs node commands against one home directory.
type Client struct {
	Binary string
	Home   string

	runner runner.Runner
}

// NewClient returns a Client running binary through r.
func NewClient(r runner.Runner, binary, home string) *Client {
	return &Client{Binary: binary, Home: home, runner: r}
}

func (c *Client) command(args ...string) runner.Command {
	return runner.New(c.Binary, append(args, "--home", c.Home)...)
}

// Init initializes the node home: config files, genesis and node keys.
func (c *Client) Init(ctx context.Context, moniker, chainID string) (string, error) {
	return c.runner.Run(ctx, c.command("init", moniker, "--chain-id", chainID))
}

// AddKey creates a key named name protected by password.
func (c *Client) AddKey(ctx context.Context, name, password string) (KeyInfo, error) {
	out, err := c.runner.RunWithPassword(ctx, c.command("keys", "add", name, "--output", "json"), password)
	if err != nil {
		return KeyInfo{}, err
	}

	raw, err := extractJSON(out)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("parsing keys add output: %w", err)
	}
	var info KeyInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return KeyInfo{}, fmt.Errorf("parsing keys add output: %w", err)
	}
	if info.Address == "" {
		return KeyInfo{}, errors.New("keys add output has no address")
	}
	info.Raw = raw
	return info, nil
}

// DeleteKey removes the key named name. It fails if there is no such key.
func (c *Client) DeleteKey(ctx context.Context, name, password string) error {
	_, err := c.runner.RunWithPassword(ctx, c.command("keys", "delete", name, "-y"), password)
	return err
}

// ShowAddress returns the bech32 address of name using the given prefix
// kind: "acc", "val" or "cons".
func (c *Client) ShowAddress(ctx context.Context, name, bech, password string) (string, error) {
	out, err := c.runner.RunWithPassword(ctx,
		c.command("keys", "show", name, "--bech", bech, "--output", "json"), password)
	if err != nil {
		return "", err
	}

	raw, err := extractJSON(out)
	if err != nil {
		return "", fmt.Errorf("parsing keys show output: %w", err)
	}
	var key struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &key); err != nil {
		return "", fmt.Errorf("parsing keys show output: %w", err)
	}
	if key.Address == "" {
		return "", fmt.Errorf("keys show output has no address: %s", out)
	}
	return key.Address, nil
}

// AddGenesisAccount credits amount to address in the genesis file.
func (c *Client) AddGenesisAccount(ctx context.Context, address, amount string) (string, error) {
	return c.runner.Run(ctx, c.command("add-genesis-account", address, amount))
}

// Gentx generates the self-delegation transaction of the validator key
// name. extraArgs is split with shell word rules and appended verbatim.
func (c *Client) Gentx(ctx context.Context, name, amount, chainID, extraArgs, password string) (string, error) {
	extra, err := shlex.Split(extraArgs)
	if err != nil {
		return "", fmt.Errorf("invalid gentx arguments %q: %w", extraArgs, err)
	}

	args := append([]string{"gentx", name, amount, "--chain-id=" + chainID}, extra...)
	return c.runner.RunWithPassword(ctx, c.command(args...), password)
}

// SetFeeder designates feeder as the oracle price feeder of the validator
// owning the from key.
func (c *Client) SetFeeder(ctx context.Context, feeder, from, fees, password string) (string, error) {
	return c.runner.RunWithPassword(ctx, c.command(
		"tx", "oracle", "set-feeder", feeder,
		"--from", from, "--yes", "--fees="+fees,
	), password)
}

// Version reports the version of the binary.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	out, err := c.runner.Run(ctx, runner.New(c.Binary, "version", "--long", "--output", "json"))
	if err != nil {
		return VersionInfo{}, err
	}

	raw, err := extractJSON(out)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("parsing version output: %w", err)
	}
	var info VersionInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return VersionInfo{}, fmt.Errorf("parsing version output: %w", err)
	}
	return info, nil
}

// extractJSON returns the first JSON object in out. Prompts and warnings
// printed on stderr may surround it since output is combined.
func extractJSON(out string) (json.RawMessage, error) {
	start := strings.IndexByte(out, '{')
	if start < 0 {
		return nil, errors.New("no JSON object in output")
	}

	var raw json.RawMessage
	if err := json.NewDecoder(strings.NewReader(out[start:])).Decode(&raw); err != nil {
		// the output may carry secrets, so it is not echoed back
		return nil, fmt.Errorf("malformed JSON in output: %w", err)
	}
	return raw, nil
}
