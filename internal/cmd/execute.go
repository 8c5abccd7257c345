package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/output"
)

// Execute runs root with args, reports any error to stderr and returns the
// process exit code.
func Execute(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return oerrors.ExitSuccess
	}

	code := oerrors.ExitCodeFromError(err)
	output.Debug("command failed", "exit", code, "reason", oerrors.ExitCodeName(code))

	var exitErr *oerrors.ExitError
	if errors.As(err, &exitErr) && exitErr.Printed {
		return code
	}
	fmt.Fprintln(stderr, FormatError(err))
	return code
}

// FormatError renders err for the terminal. Structured errors render their
// own location and hint.
func FormatError(err error) string {
	var detail *oerrors.DetailError
	if errors.As(err, &detail) {
		return detail.Error()
	}
	return "Error: " + err.Error()
}
