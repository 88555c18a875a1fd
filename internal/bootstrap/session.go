// Package bootstrap prepares the local state of a validator node.
//
// A bootstrap run is a Session. Actions are ordered lists of phases, each
// declaring the node state it requires and the state it leaves behind:
//
//	setup-validator     New -> New -> Clean -> Initialized -> Keyed
//	prepare-genesis     Keyed -> Funded -> Bonded
//	setup-price-feeder  New -> Built -> FeederKeyed -> Configured
//
// A phase whose precondition does not hold is never started. The first
// failing phase aborts the rest of its action; nothing is retried and
// nothing is rolled back beyond the backup taken by the cleanup phase.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/kiichain/kiisetup/config"
	"github.com/kiichain/kiisetup/internal/accounts"
	"github.com/kiichain/kiisetup/internal/credentials"
	"github.com/kiichain/kiisetup/internal/nodecli"
	"github.com/kiichain/kiisetup/internal/runner"
	"github.com/kiichain/kiisetup/libs/log"
)

// Actions exposed on the command line.
const (
	ActionSetupValidator   = "setup-validator"
	ActionPrepareGenesis   = "prepare-genesis"
	ActionSetupPriceFeeder = "setup-price-feeder"
)

// Actions lists the valid actions in the order they are documented.
var Actions = []string{ActionSetupValidator, ActionPrepareGenesis, ActionSetupPriceFeeder}

var (
	// ErrMissingArgument is returned before any side effect when a required
	// argument is empty.
	ErrMissingArgument = errors.New("missing argument")

	// ErrDirtyState is returned when node config already exists. The
	// operator has to reset the node home by hand.
	ErrDirtyState = errors.New("node state is not clean")

	// ErrPhaseOrder is returned when a phase runs from the wrong state.
	ErrPhaseOrder = errors.New("phase precondition not met")

	// ErrVersionMismatch is returned when the installed node binary does not
	// report the expected version.
	ErrVersionMismatch = errors.New("node version mismatch")

	// ErrUnknownAction is returned by Run for names not in Actions.
	ErrUnknownAction = errors.New("unknown action")
)

// State is the node state reached by the phases run so far.
type State int

const (
	StateNew State = iota
	StateClean
	StateInitialized
	StateKeyed
	StateFunded
	StateBonded
	StateBuilt
	StateFeederKeyed
	StateConfigured
)

var stateNames = map[State]string{
	StateNew:         "new",
	StateClean:       "clean",
	StateInitialized: "initialized",
	StateKeyed:       "keyed",
	StateFunded:      "funded",
	StateBonded:      "bonded",
	StateBuilt:       "built",
	StateFeederKeyed: "feeder-keyed",
	StateConfigured:  "configured",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Phase is one state transition of an action.
type Phase struct {
	Name     string
	Requires State
	Produces State
	Run      func(ctx context.Context, s *Session) error
}

// Session carries everything a bootstrap run shares between phases. It is
// built once per invocation and never persisted.
type Session struct {
	// ID tags every log line of the run.
	ID string

	Config    *config.Config
	Logger    log.Logger
	Runner    runner.Runner
	Node      *nodecli.Client
	Accounts  *accounts.Registry
	Passwords credentials.Provider

	// Now stamps backups.
	Now func() time.Time

	workspace string
	state     State
}

// NewSession returns a session in StateNew with an empty account registry.
func NewSession(conf *config.Config, r runner.Runner, passwords credentials.Provider, logger log.Logger) *Session {
	id := uuid.NewString()
	logger = logger.With("run", id)

	node := nodecli.NewClient(r, conf.Node.Binary, conf.RootDir)
	return &Session{
		ID:        id,
		Config:    conf,
		Logger:    logger,
		Runner:    r,
		Node:      node,
		Accounts:  accounts.NewRegistry(node, passwords, conf.KeyInfoFile, logger),
		Passwords: passwords,
		Now:       time.Now,
		state:     StateNew,
	}
}

// State returns the state reached so far.
func (s *Session) State() State { return s.state }

// Workspace returns the resolved workspace root, empty until a phase
// resolved it.
func (s *Session) Workspace() string { return s.workspace }

// Execute runs phases in order under the name action.
func (s *Session) Execute(ctx context.Context, action string, phases []Phase) error {
	logger := s.Logger.With("action", action)

	for _, p := range phases {
		if s.state != p.Requires {
			err := fmt.Errorf("%w: %s requires state %s, node is %s", ErrPhaseOrder, p.Name, p.Requires, s.state)
			logger.Error("unable to run action", "phase", p.Name, "err", err)
			return fmt.Errorf("%s: %w", action, err)
		}

		logger.Debug("running phase", "phase", p.Name, "state", s.state)
		if err := p.Run(ctx, s); err != nil {
			logger.Error("unable to run action", "phase", p.Name, "err", err)
			return fmt.Errorf("%s: %s: %w", action, p.Name, err)
		}
		s.state = p.Produces
	}
	return nil
}

// SetupValidator wipes (after backing up) the node home, initializes it
// and provisions the validator key.
func (s *Session) SetupValidator(ctx context.Context) error {
	if err := s.requireArgs(ActionSetupValidator, true, true); err != nil {
		return err
	}
	return s.Execute(ctx, ActionSetupValidator, ValidatorPhases())
}

// PrepareGenesis funds the validator account and writes its gentx. The
// validator must have been set up by this session.
func (s *Session) PrepareGenesis(ctx context.Context) error {
	if err := s.requireArgs(ActionPrepareGenesis, true, true); err != nil {
		return err
	}
	return s.Execute(ctx, ActionPrepareGenesis, GenesisPhases())
}

// SetupPriceFeeder installs the price feeder, authorizes its account and
// renders its configuration.
func (s *Session) SetupPriceFeeder(ctx context.Context) error {
	if err := s.requireArgs(ActionSetupPriceFeeder, true, false); err != nil {
		return err
	}
	return s.Execute(ctx, ActionSetupPriceFeeder, PriceFeederPhases())
}

// Run performs action the way the command line does: prepare-genesis first
// sets up the validator in the same session, and the version check runs
// afterwards whether or not the action succeeded.
func (s *Session) Run(ctx context.Context, action string) error {
	err := s.runAction(ctx, action)

	// The version check runs even after a failed action.
	return multierr.Append(err, s.ValidateVersion(ctx, s.Config.Version))
}

func (s *Session) runAction(ctx context.Context, action string) error {
	switch action {
	case ActionSetupValidator, ActionPrepareGenesis:
		if err := s.SetupValidator(ctx); err != nil {
			return err
		}
		if err := s.SetValidatorMode(ctx); err != nil {
			return err
		}
		if action == ActionPrepareGenesis {
			return s.PrepareGenesis(ctx)
		}
		return nil

	case ActionSetupPriceFeeder:
		return s.SetupPriceFeeder(ctx)

	default:
		err := fmt.Errorf("%w: %q", ErrUnknownAction, action)
		s.Logger.Error("unable to run action", "action", action, "err", err)
		return err
	}
}

// ValidateVersion checks that the node binary reports version want. An
// empty want skips the check.
func (s *Session) ValidateVersion(ctx context.Context, want string) error {
	if want == "" {
		s.Logger.Info("no version given, skipping version check")
		return nil
	}

	info, err := s.Node.Version(ctx)
	if err != nil {
		s.Logger.Error("unable to check node version", "err", err)
		return fmt.Errorf("checking version: %w", err)
	}
	if info.Version != want {
		err := fmt.Errorf("%w: expected version %s but got %s", ErrVersionMismatch, want, info.Version)
		s.Logger.Error("unexpected node version", "err", err)
		return err
	}
	s.Logger.Info("validated node version", "version", info.Version)
	return nil
}

func (s *Session) requireArgs(action string, chainID, moniker bool) error {
	var err error
	if chainID && s.Config.ChainID == "" {
		err = fmt.Errorf("%w: please specify a chain ID", ErrMissingArgument)
	} else if moniker && s.Config.Moniker == "" {
		err = fmt.Errorf("%w: please specify a moniker", ErrMissingArgument)
	}
	if err != nil {
		s.Logger.Error("unable to run action", "action", action, "err", err)
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}
