package mcmc

import (
	"errors"
	"fmt"
)

// ErrNotAChain is returned when a chain-dependent method or property of a
// module is used before the module has been attached to a chain.
var ErrNotAChain = errors.New("this core or likelihood must be attached to a computation chain to use this method")

// ErrNotSetup is returned when behaviour requiring a completed Setup is used
// before the chain has set the module up.
var ErrNotSetup = errors.New("Setup() must have been called on the chain to use this method")

// ErrAlreadySetup is returned when Setup runs a second time on a module that
// was already set up successfully.
var ErrAlreadySetup = errors.New("module has already been set up")

// ErrAlreadyAttached is returned when a module is attached to a chain twice:
// a stage is owned by exactly one chain and the back-reference is set once.
var ErrAlreadyAttached = errors.New("module is already attached to a chain")

// MissingCoreError reports a required-core group with no satisfying core
// loaded in the chain. It is raised during chain setup, before any sampling.
type MissingCoreError struct {
	Module string // module whose requirement is unsatisfied
	Group  string // human-readable rendering of the OR-group
}

func (e *MissingCoreError) Error() string {
	return fmt.Sprintf("%s needs one of %s to be loaded", e.Module, e.Group)
}

// ConfigError reports an invalid stage configuration discovered at setup or
// during an iteration, such as an unknown output-field name or a mock
// request with no noise specification.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
