package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	oerrors "github.com/opmodel/weaver/internal/errors"
)

//go:embed schema.cue
var schemaCUE []byte

// Validator validates configuration against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator creates a new configuration validator.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{
		ctx:    ctx,
		schema: schema.LookupPath(cue.ParsePath("#Config")),
	}, nil
}

// Validate checks raw settings against the schema. location names the
// config file in the error.
func (v *Validator) Validate(raw map[string]any, location string) error {
	value := v.ctx.Encode(raw)
	if value.Err() != nil {
		return fmt.Errorf("encoding config: %w", value.Err())
	}

	unified := v.schema.Unify(value)
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	messages := make([]string, 0, len(errs))
	field := ""
	for _, e := range errs {
		path := strings.Join(e.Path(), ".")
		if field == "" {
			field = path
		}
		format, args := e.Msg()
		messages = append(messages, fmt.Sprintf("%s: %s", path, fmt.Sprintf(format, args...)))
	}
	return oerrors.NewValidationError(strings.Join(messages, "; "), location, field,
		"see 'weaver weave --help' for the supported settings")
}
