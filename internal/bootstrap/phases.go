package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/creachadair/tomledit/parser"

	"github.com/kiichain/kiisetup/internal/confpatch"
	"github.com/kiichain/kiisetup/internal/runner"
	tmos "github.com/kiichain/kiisetup/libs/os"
)

// Phase names, as they appear in logs and errors.
const (
	PhaseCleanup               = "cleanup"
	PhaseWorkspace             = "workspace"
	PhaseValidateCleanState    = "validate-clean-state"
	PhaseInit                  = "init"
	PhaseProvisionValidatorKey = "provision-validator-key"
	PhaseFundGenesisAccount    = "fund-genesis-account"
	PhaseGentx                 = "gentx"
	PhaseBuildPriceFeeder      = "build-price-feeder"
	PhaseRegisterFeeder        = "register-feeder"
	PhaseRenderFeederConfig    = "render-feeder-config"
)

// modeKey is the top-level run mode of the node config.
var modeKey = parser.Key{"mode"}

// ValidatorPhases are the phases of setup-validator.
func ValidatorPhases() []Phase {
	return []Phase{
		{Name: PhaseCleanup, Requires: StateNew, Produces: StateNew, Run: cleanup},
		{Name: PhaseWorkspace, Requires: StateNew, Produces: StateNew, Run: resolveWorkspace},
		{Name: PhaseValidateCleanState, Requires: StateNew, Produces: StateClean, Run: validateCleanState},
		{Name: PhaseInit, Requires: StateClean, Produces: StateInitialized, Run: initNode},
		{Name: PhaseProvisionValidatorKey, Requires: StateInitialized, Produces: StateKeyed, Run: provisionValidatorKey},
	}
}

// GenesisPhases are the phases of prepare-genesis.
func GenesisPhases() []Phase {
	return []Phase{
		{Name: PhaseFundGenesisAccount, Requires: StateKeyed, Produces: StateFunded, Run: fundGenesisAccount},
		{Name: PhaseGentx, Requires: StateFunded, Produces: StateBonded, Run: gentx},
	}
}

// PriceFeederPhases are the phases of setup-price-feeder.
func PriceFeederPhases() []Phase {
	return []Phase{
		{Name: PhaseBuildPriceFeeder, Requires: StateNew, Produces: StateBuilt, Run: buildPriceFeeder},
		{Name: PhaseRegisterFeeder, Requires: StateBuilt, Produces: StateFeederKeyed, Run: registerFeeder},
		{Name: PhaseRenderFeederConfig, Requires: StateFeederKeyed, Produces: StateConfigured, Run: renderFeederConfig},
	}
}

// cleanup moves the node home out of the way. The backup is a plain copy:
// if it is interrupted the home is left in place, but a partial backup may
// remain.
func cleanup(_ context.Context, s *Session) error {
	home := s.Config.RootDir
	if !tmos.FileExists(home) {
		s.Logger.Info("no node state to clean up", "home", home)
		return nil
	}

	backup := s.backupDir()
	if err := tmos.CopyDir(home, backup); err != nil {
		return fmt.Errorf("backing up %s: %w", home, err)
	}
	s.Logger.Info("backed up node state", "backup", backup)

	if err := os.RemoveAll(home); err != nil {
		return fmt.Errorf("removing %s: %w", home, err)
	}
	s.Logger.Info("removed node state", "home", home)
	return nil
}

// backupDir returns a timestamped path that does not exist yet.
func (s *Session) backupDir() string {
	base := s.Config.BackupDir(s.Now())
	path := base
	for i := 1; tmos.FileExists(path); i++ {
		path = fmt.Sprintf("%s_%d", base, i)
	}
	return path
}

func resolveWorkspace(ctx context.Context, s *Session) error {
	return s.resolveWorkspace(ctx)
}

// resolveWorkspace finds the repository root builds and templates are
// relative to. The process working directory is left alone.
func (s *Session) resolveWorkspace(ctx context.Context) error {
	if s.workspace != "" {
		return nil
	}

	dir := s.Config.Workspace
	if dir == "" {
		out, err := s.Runner.Run(ctx, runner.New("git", "rev-parse", "--show-toplevel"))
		if err != nil {
			return fmt.Errorf("finding the repository root: %w", err)
		}
		dir = out
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err != nil {
		return fmt.Errorf("workspace: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("workspace %s is not a directory", abs)
	}

	s.workspace = abs
	s.Logger.Info("using workspace", "dir", abs)
	return nil
}

func validateCleanState(ctx context.Context, s *Session) error {
	if path := s.Config.NodeConfigFile(); tmos.FileExists(path) {
		return fmt.Errorf("%w: the file %s already exists, please reset your %s state",
			ErrDirtyState, path, s.Config.RootDir)
	}
	s.Logger.Info("validated clean state")

	return s.build(ctx, "install")
}

// build runs make in the workspace unless builds are disabled.
func (s *Session) build(ctx context.Context, targets ...string) error {
	if s.Config.Node.SkipBuild {
		s.Logger.Info("skipping build", "targets", targets)
		return nil
	}

	s.Logger.Info("building", "targets", targets)
	if _, err := s.Runner.Run(ctx, runner.New("make", targets...).InDir(s.workspace)); err != nil {
		return err
	}
	s.Logger.Info("build successful", "targets", targets)
	return nil
}

func initNode(ctx context.Context, s *Session) error {
	s.Logger.Info("initializing node", "moniker", s.Config.Moniker, "chain-id", s.Config.ChainID)
	if _, err := s.Node.Init(ctx, s.Config.Moniker, s.Config.ChainID); err != nil {
		return err
	}
	s.Logger.Info("initialized node", "home", s.Config.RootDir)
	return nil
}

func provisionValidatorKey(ctx context.Context, s *Session) error {
	_, _, err := s.Accounts.AddKey(ctx, s.Config.Genesis.ValidatorAccount)
	return err
}

// SetValidatorMode switches the freshly initialized node config to the
// configured run mode and reads it back.
func (s *Session) SetValidatorMode(ctx context.Context) error {
	if s.state != StateKeyed {
		err := fmt.Errorf("%w: setting the node mode requires state %s, node is %s", ErrPhaseOrder, StateKeyed, s.state)
		s.Logger.Error("unable to set node mode", "err", err)
		return err
	}

	path := s.Config.NodeConfigFile()
	mode := s.Config.Node.Mode
	if err := confpatch.SetString(ctx, path, modeKey, mode); err != nil {
		s.Logger.Error("unable to set node mode", "path", path, "err", err)
		return err
	}

	got, err := confpatch.LookupString(path, modeKey)
	if err != nil {
		s.Logger.Error("unable to read node mode", "path", path, "err", err)
		return err
	}
	if got != mode {
		err := fmt.Errorf("node mode is %q after rewriting %s, want %q", got, path, mode)
		s.Logger.Error("unable to set node mode", "err", err)
		return err
	}

	s.Logger.Info("set node mode", "mode", mode, "path", path)
	return nil
}

func fundGenesisAccount(ctx context.Context, s *Session) error {
	acc, err := s.Accounts.Lookup(s.Config.Genesis.ValidatorAccount)
	if err != nil {
		return err
	}

	amount := s.Config.Genesis.StartingBalance
	if _, err := s.Node.AddGenesisAccount(ctx, acc.Address, amount); err != nil {
		return err
	}
	s.Logger.Info("added genesis account", "account", acc.Name, "address", acc.Address, "amount", amount)
	return nil
}

func gentx(ctx context.Context, s *Session) error {
	acc, err := s.Accounts.Lookup(s.Config.Genesis.ValidatorAccount)
	if err != nil {
		return err
	}

	out, err := s.Node.Gentx(ctx, acc.Name, s.Config.Genesis.SelfDelegation, s.Config.ChainID,
		s.Config.GentxArgs, acc.Password)
	if err != nil {
		return err
	}
	s.Logger.Info("generated gentx", "account", acc.Name, "output", out)
	return nil
}

func buildPriceFeeder(ctx context.Context, s *Session) error {
	if err := s.resolveWorkspace(ctx); err != nil {
		return err
	}
	return s.build(ctx, "install", "price-feeder")
}

func registerFeeder(ctx context.Context, s *Session) error {
	name := s.Config.PriceFeeder.Account
	if _, _, err := s.Accounts.AddKey(ctx, name); err != nil {
		return err
	}
	feeder, err := s.Accounts.Lookup(name)
	if err != nil {
		return err
	}

	validator := s.Config.Genesis.ValidatorAccount
	if _, err := s.Node.SetFeeder(ctx, feeder.Address, validator, s.Config.PriceFeeder.Fees, feeder.Password); err != nil {
		return err
	}
	s.Logger.Info("set price feeder", "feeder", feeder.Address, "validator", validator)
	s.Logger.Info("please send kii tokens to the feeder account to fund it", "address", feeder.Address)
	return nil
}

func renderFeederConfig(ctx context.Context, s *Session) error {
	feeder, err := s.Accounts.Lookup(s.Config.PriceFeeder.Account)
	if err != nil {
		return err
	}

	src := s.Config.PriceFeeder.TemplateFile(s.workspace)
	if !tmos.IsRegularFile(src) {
		return fmt.Errorf("price feeder template %s not found", src)
	}

	validator := s.Config.Genesis.ValidatorAccount
	password, err := s.Passwords.Password(validator)
	if err != nil {
		return fmt.Errorf("password for account %s: %w", validator, err)
	}
	valAddr, err := s.Node.ShowAddress(ctx, validator, "val", password)
	if err != nil {
		return err
	}

	dst := s.Config.PriceFeeder.OutputFile(s.Config.RootDir)
	if err := tmos.EnsureDir(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	values := map[string]string{
		confpatch.FeederAddrPlaceholder:    feeder.Address,
		confpatch.ChainIDPlaceholder:       s.Config.ChainID,
		confpatch.ValidatorAddrPlaceholder: valAddr,
	}
	if err := confpatch.RenderTemplate(src, dst, values); err != nil {
		return err
	}
	s.Logger.Info("price feeder config file created", "path", dst)
	return nil
}
