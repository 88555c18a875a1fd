package nodecli_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kiichain/kiisetup/internal/nodecli"
	"github.com/kiichain/kiisetup/internal/runner"
	"github.com/kiichain/kiisetup/internal/runner/mocks"
)

const home = "/tmp/kiichain3"

func cmd(args ...string) runner.Command {
	return runner.New("kiichaind", append(args, "--home", home)...)
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	r := mocks.NewRunner(t)
	r.On("Run", ctx, cmd("init", "node0", "--chain-id", "testnet-1")).Return("ok", nil)

	out, err := nodecli.NewClient(r, "kiichaind", home).Init(ctx, "node0", "testnet-1")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestAddKey(t *testing.T) {
	ctx := context.Background()
	const output = `Enter keyring passphrase:
{"name":"admin","type":"local","address":"kii1abc","pubkey":"{\"@type\":\"/cosmos.crypto.secp256k1.PubKey\"}","mnemonic":"word word word"}`

	r := mocks.NewRunner(t)
	r.On("RunWithPassword", ctx, cmd("keys", "add", "admin", "--output", "json"), "secret").Return(output, nil)

	info, err := nodecli.NewClient(r, "kiichaind", home).AddKey(ctx, "admin", "secret")
	require.NoError(t, err)
	require.Equal(t, "admin", info.Name)
	require.Equal(t, "kii1abc", info.Address)
	require.Equal(t, "word word word", info.Mnemonic)
	require.JSONEq(t, output[len("Enter keyring passphrase:\n"):], string(info.Raw))
}

func TestAddKeyBadOutput(t *testing.T) {
	ctx := context.Background()
	testCases := map[string]string{
		"no json":    "Error: keyring locked",
		"truncated":  `{"address":"kii1`,
		"no address": `{"name":"admin","mnemonic":"secret words"}`,
	}

	for name, output := range testCases {
		output := output
		t.Run(name, func(t *testing.T) {
			r := mocks.NewRunner(t)
			r.On("RunWithPassword", ctx, mock.Anything, "secret").Return(output, nil)

			_, err := nodecli.NewClient(r, "kiichaind", home).AddKey(ctx, "admin", "secret")
			require.Error(t, err)
			require.NotContains(t, err.Error(), "secret words")
		})
	}
}

func TestAddKeyCommandFailure(t *testing.T) {
	ctx := context.Background()
	failure := &runner.CommandFailure{Output: "boom", Err: errors.New("exit status 1")}

	r := mocks.NewRunner(t)
	r.On("RunWithPassword", ctx, mock.Anything, "secret").Return("boom", failure)

	_, err := nodecli.NewClient(r, "kiichaind", home).AddKey(ctx, "admin", "secret")
	var target *runner.CommandFailure
	require.True(t, errors.As(err, &target))
}

func TestDeleteKey(t *testing.T) {
	ctx := context.Background()
	r := mocks.NewRunner(t)
	r.On("RunWithPassword", ctx, cmd("keys", "delete", "admin", "-y"), "secret").Return("", nil)

	require.NoError(t, nodecli.NewClient(r, "kiichaind", home).DeleteKey(ctx, "admin", "secret"))
}

func TestShowAddress(t *testing.T) {
	ctx := context.Background()
	r := mocks.NewRunner(t)
	r.On("RunWithPassword", ctx, cmd("keys", "show", "admin", "--bech", "val", "--output", "json"), "secret").
		Return(`{"name":"admin","address":"kiivaloper1xyz"}`, nil)

	addr, err := nodecli.NewClient(r, "kiichaind", home).ShowAddress(ctx, "admin", "val", "secret")
	require.NoError(t, err)
	require.Equal(t, "kiivaloper1xyz", addr)
}

func TestAddGenesisAccount(t *testing.T) {
	ctx := context.Background()
	r := mocks.NewRunner(t)
	r.On("Run", ctx, cmd("add-genesis-account", "kii1abc", "12kii")).Return("", nil)

	_, err := nodecli.NewClient(r, "kiichaind", home).AddGenesisAccount(ctx, "kii1abc", "12kii")
	require.NoError(t, err)
}

func TestGentx(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		extra string
		want  []string
	}{
		{"", nil},
		{"--ip kiinetwork.io --port 123", []string{"--ip", "kiinetwork.io", "--port", "123"}},
		{`--details "my validator; rm -rf /"`, []string{"--details", "my validator; rm -rf /"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.extra, func(t *testing.T) {
			args := append([]string{"gentx", "admin", "10kii", "--chain-id=testnet-1"}, tc.want...)
			r := mocks.NewRunner(t)
			r.On("RunWithPassword", ctx, cmd(args...), "secret").Return("Genesis transaction written", nil)

			out, err := nodecli.NewClient(r, "kiichaind", home).Gentx(ctx, "admin", "10kii", "testnet-1", tc.extra, "secret")
			require.NoError(t, err)
			require.Equal(t, "Genesis transaction written", out)
		})
	}
}

func TestGentxInvalidArgs(t *testing.T) {
	r := mocks.NewRunner(t)
	_, err := nodecli.NewClient(r, "kiichaind", home).
		Gentx(context.Background(), "admin", "10kii", "testnet-1", `--details "unterminated`, "secret")
	require.Error(t, err)
}

func TestSetFeeder(t *testing.T) {
	ctx := context.Background()
	r := mocks.NewRunner(t)
	r.On("RunWithPassword", ctx,
		cmd("tx", "oracle", "set-feeder", "kii1feeder", "--from", "admin", "--yes", "--fees=2000ukii"),
		"feeder-secret").Return("txhash: ABC", nil)

	out, err := nodecli.NewClient(r, "kiichaind", home).SetFeeder(ctx, "kii1feeder", "admin", "2000ukii", "feeder-secret")
	require.NoError(t, err)
	require.Equal(t, "txhash: ABC", out)
}

func TestVersion(t *testing.T) {
	ctx := context.Background()
	r := mocks.NewRunner(t)
	r.On("Run", ctx, runner.New("kiichaind", "version", "--long", "--output", "json")).
		Return(`{"name":"kiichain","version":"v1.2.0","commit":"abc"}`, nil)

	info, err := nodecli.NewClient(r, "kiichaind", home).Version(ctx)
	require.NoError(t, err)
	require.Equal(t, "v1.2.0", info.Version)
	require.Equal(t, "abc", info.Commit)
}
