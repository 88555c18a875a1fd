package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiichain/kiisetup/internal/runner"
)

const defaultNodeConfig = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# Mode of Node: full | validator | seed
mode = "full"

moniker = "%s"

[p2p]
laddr = "tcp://0.0.0.0:26656"
`

type fakeKey struct {
	address  string
	password string
}

type call struct {
	cmd      runner.Command
	password string
}

// fakeNode stands in for kiichaind, git and make. It keeps just enough
// state to behave like the real binary for the bootstrap phases.
type fakeNode struct {
	home      string
	workspace string
	version   string

	keys  map[string]fakeKey
	seq   int
	calls []call

	// fail makes the named node subcommand exit non-zero.
	fail map[string]error
}

var _ runner.Runner = (*fakeNode)(nil)

func newFakeNode(home, workspace string) *fakeNode {
	return &fakeNode{
		home:      home,
		workspace: workspace,
		version:   "v1.0.0",
		keys:      make(map[string]fakeKey),
		fail:      make(map[string]error),
	}
}

func (f *fakeNode) Run(_ context.Context, cmd runner.Command) (string, error) {
	return f.handle(cmd, "")
}

func (f *fakeNode) RunWithPassword(_ context.Context, cmd runner.Command, password string) (string, error) {
	return f.handle(cmd, password)
}

// commands returns the calls made to the node binary with the given first
// argument, --home stripped.
func (f *fakeNode) commands(sub string) []call {
	var out []call
	for _, c := range f.calls {
		if c.cmd.Name != "kiichaind" || len(c.cmd.Args) == 0 || c.cmd.Args[0] != sub {
			continue
		}
		c.cmd.Args = stripHome(c.cmd.Args)
		out = append(out, c)
	}
	return out
}

func (f *fakeNode) callsTo(name string) []call {
	var out []call
	for _, c := range f.calls {
		if c.cmd.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func stripHome(args []string) []string {
	n := len(args)
	if n >= 2 && args[n-2] == "--home" {
		return args[:n-2]
	}
	return args
}

func failure(cmd runner.Command, output string) error {
	return &runner.CommandFailure{Command: cmd, Output: output, Err: errors.New("exit status 1")}
}

func (f *fakeNode) handle(cmd runner.Command, password string) (string, error) {
	f.calls = append(f.calls, call{cmd: cmd, password: password})

	switch cmd.Name {
	case "git":
		return f.workspace, nil
	case "make":
		return "go install ./...", nil
	case "kiichaind":
	default:
		return "", failure(cmd, "executable file not found in $PATH")
	}

	args := cmd.Args
	if sub := args[0]; sub != "version" {
		n := len(args)
		if n < 2 || args[n-2] != "--home" || args[n-1] != f.home {
			return "", failure(cmd, "unexpected home")
		}
		args = stripHome(args)
	}
	if err, ok := f.fail[args[0]]; ok {
		return "boom", &runner.CommandFailure{Command: cmd, Output: "boom", Err: err}
	}

	switch args[0] {
	case "init":
		if err := os.MkdirAll(filepath.Join(f.home, "config"), 0700); err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Join(f.home, "data"), 0700); err != nil {
			return "", err
		}
		cfg := fmt.Sprintf(defaultNodeConfig, args[1])
		if err := os.WriteFile(filepath.Join(f.home, "config", "config.toml"), []byte(cfg), 0644); err != nil {
			return "", err
		}
		return fmt.Sprintf(`{"moniker":%q,"chain_id":%q}`, args[1], args[3]), nil

	case "keys":
		return f.keysCmd(cmd, args[1:], password)

	case "add-genesis-account":
		return "", nil

	case "gentx":
		if key, ok := f.keys[args[1]]; !ok || key.password != password {
			return "", failure(cmd, "invalid passphrase")
		}
		return "Genesis transaction written to " + filepath.Join(f.home, "config", "gentx"), nil

	case "tx":
		return `{"height":"0","txhash":"ABC"}`, nil

	case "version":
		return fmt.Sprintf(`{"name":"kiichain","version":%q,"commit":"deadbeef"}`, f.version), nil
	}
	return "", failure(cmd, "unknown command "+args[0])
}

func (f *fakeNode) keysCmd(cmd runner.Command, args []string, password string) (string, error) {
	name := args[1]
	switch args[0] {
	case "add":
		if _, ok := f.keys[name]; ok {
			return "", failure(cmd, "duplicated key")
		}
		f.seq++
		key := fakeKey{
			address:  fmt.Sprintf("kii1%s%d", strings.ReplaceAll(name, "-", ""), f.seq),
			password: password,
		}
		f.keys[name] = key
		out, err := json.Marshal(map[string]string{
			"name":     name,
			"type":     "local",
			"address":  key.address,
			"pubkey":   `{"@type":"/cosmos.crypto.secp256k1.PubKey","key":"AAAA"}`,
			"mnemonic": fmt.Sprintf("abandon abandon %s %d", name, f.seq),
		})
		return string(out), err

	case "delete":
		if _, ok := f.keys[name]; !ok {
			return "", failure(cmd, name+".info: key not found")
		}
		delete(f.keys, name)
		return "Key deleted forever (uh oh!)", nil

	case "show":
		key, ok := f.keys[name]
		if !ok {
			return "", failure(cmd, name+".info: key not found")
		}
		if key.password != password {
			return "", failure(cmd, "invalid passphrase")
		}
		return fmt.Sprintf(`{"name":%q,"address":%q}`, name, strings.Replace(key.address, "kii1", "kiivaloper1", 1)), nil
	}
	return "", failure(cmd, "unknown keys command")
}
