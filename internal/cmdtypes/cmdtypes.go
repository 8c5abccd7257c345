// Package cmdtypes provides shared types for the cmd package and its sub-packages.
// It is separate from internal/cmd so that sub-packages (internal/cmd/cache,
// internal/cmd/config, internal/cmd/template) can use them without importing
// their parent.
package cmdtypes

import (
	"github.com/opmodel/weaver/internal/config"
	oerrors "github.com/opmodel/weaver/internal/errors"
)

// GlobalConfig holds CLI-wide configuration resolved during PersistentPreRunE.
// It is populated once at startup and passed into every sub-command constructor.
type GlobalConfig struct {
	// Config is the loaded configuration. Nil until PersistentPreRunE ran.
	Config *config.Config

	// ConfigErr is the error loading the configuration failed with. Commands
	// that do not read the configuration ignore it.
	ConfigErr error

	// ConfigPath is the resolved --config value and where it came from.
	ConfigPath config.ResolvedValue

	Verbose bool
}

// Loaded returns the configuration, or the error loading it failed with.
func (g *GlobalConfig) Loaded() (*config.Config, error) {
	if g.ConfigErr != nil {
		return nil, g.ConfigErr
	}
	if g.Config == nil {
		return config.DefaultConfig(), nil
	}
	return g.Config, nil
}

// Exit codes, aliased from internal/errors.
const (
	ExitSuccess          = oerrors.ExitSuccess
	ExitGeneralError     = oerrors.ExitGeneralError
	ExitValidationError  = oerrors.ExitValidationError
	ExitNotFound         = oerrors.ExitNotFound
	ExitWeavingError     = oerrors.ExitWeavingError
	ExitConsistencyError = oerrors.ExitConsistencyError
)

// ExitError is a type alias to internal/errors.ExitError.
type ExitError = oerrors.ExitError

// NewExitError wraps err with the exit code its sentinel maps to.
func NewExitError(err error) *ExitError {
	return &ExitError{Err: err, Code: oerrors.ExitCodeFromError(err)}
}
