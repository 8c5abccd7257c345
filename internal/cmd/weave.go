package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cache"
	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/config"
	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/manifest"
	"github.com/opmodel/weaver/internal/modfile"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/output"
	"github.com/opmodel/weaver/internal/templates"
	"github.com/opmodel/weaver/internal/weaver"
)

// ManifestSuffix replaces the module image's extension to name its manifest.
const ManifestSuffix = ".weaver.yaml"

// weaveOptions holds the flags for the weave command.
type weaveOptions struct {
	copyLocal    []string
	copyLocalDir string
	references   []string
	modulePath   []string
	cacheDir     string
	out          string
	manifest     string
	noManifest   bool
	template     string
	timeout      time.Duration
}

// NewWeaveCmd creates the weave command.
func NewWeaveCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &weaveOptions{}

	c := &cobra.Command{
		Use:   "weave MODULE",
		Short: "Embed dependencies and a loader into a module",
		Long: `Embeds the copy-local dependencies of MODULE as resources, clones the
loader template into it and registers every embedded resource in the
loader's lookup tables.

Dependencies are given with --copy-local (repeatable) or --copy-local-dir
(every file below the directory). At least one of them is required, even
if it names no file. Which dependencies are embedded is controlled by the
configuration file (see 'weaver config vet').

The woven module overwrites MODULE unless --out is given. A manifest of
the embedded resources is written next to it.

Exit codes:
  0 - Module woven
  2 - Invalid configuration
  5 - Module, template or dependency not found
  7 - Weaving error
  8 - Internal consistency error`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runWeave(c.Context(), gc, args[0], opts, c.Flags().Changed("copy-local"))
		},
	}

	c.Flags().StringSliceVar(&opts.copyLocal, "copy-local", nil, "Dependency files copied next to the module")
	c.Flags().StringVar(&opts.copyLocalDir, "copy-local-dir", "", "Directory whose files are all copy-local dependencies")
	c.Flags().StringSliceVar(&opts.references, "reference", nil, "Declared references of the module, consulted for included dependencies")
	c.Flags().StringSliceVar(&opts.modulePath, "module-path", nil, "Module images the target module imports from")
	c.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "Payload cache directory (env: WEAVER_CACHE_DIR)")
	c.Flags().StringVarP(&opts.out, "out", "o", "", "Write the woven module here instead of overwriting MODULE")
	c.Flags().StringVar(&opts.manifest, "manifest", "", "Manifest path (default: <out>"+ManifestSuffix+")")
	c.Flags().BoolVar(&opts.noManifest, "no-manifest", false, "Do not write a manifest")
	c.Flags().StringVar(&opts.template, "template", "", "Loader template module image (default: built-in)")
	c.Flags().DurationVar(&opts.timeout, "timeout", 0, "Abort the weave after this long (0 means no limit)")

	return c
}

func runWeave(ctx context.Context, gc *cmdtypes.GlobalConfig, target string, opts *weaveOptions, copyLocalSet bool) error {
	cfg, err := gc.Loaded()
	if err != nil {
		return err
	}

	mod, err := readModule(target)
	if err != nil {
		return err
	}

	registry, tmpl := templates.NewRegistry()
	if opts.template != "" {
		if tmpl, err = readModule(opts.template); err != nil {
			return err
		}
		registry.Add(tmpl)
	}
	for _, p := range opts.modulePath {
		dep, err := readModule(p)
		if err != nil {
			return err
		}
		registry.Add(dep)
	}

	cacheDir := config.ResolveCacheDir(opts.cacheDir, cfg.CacheDir, target)
	config.LogResolvedValues(cacheDir)
	store, err := cache.Open(cacheDir.Value)
	if err != nil {
		return err
	}

	copyLocal, err := collectCopyLocal(opts, copyLocalSet, store.Root())
	if err != nil {
		return err
	}

	in := weaver.Inputs{
		Module:       mod,
		Template:     tmpl,
		Resolver:     registry,
		Cache:        store,
		CopyLocal:    copyLocal,
		References:   opts.references,
		PreloadOrder: cfg.PreloadOrder,
		Embed:        cfg.EmbedOptions(),
		Namespace:    cfg.Loader.Namespace,
		Name:         cfg.Loader.Name,
	}

	modLog := output.ModuleLogger(mod.Name)
	modLog.Info(fmt.Sprintf("weaving %d dependencies", len(copyLocal)), "cache", cacheDir.Value)

	var res *weaver.Result
	err = output.RunWithSpinner(ctx, func(ctx context.Context) error {
		var err error
		res, err = weaver.Run(ctx, in)
		return err
	}, output.WithTitle("Weaving "+mod.Name+"..."), output.WithTimeout(opts.timeout))
	if err != nil {
		return fmt.Errorf("weaving %s: %w", mod.Name, err)
	}

	outPath := opts.out
	if outPath == "" {
		outPath = target
	}
	if err := modfile.WriteFile(outPath, res.Module); err != nil {
		return err
	}

	if !opts.noManifest {
		manifestPath := opts.manifest
		if manifestPath == "" {
			manifestPath = ManifestPath(outPath)
		}
		if err := writeManifest(modLog, manifestPath, manifest.FromResult(res)); err != nil {
			return err
		}
	}

	for _, r := range res.Resources {
		output.Println(output.FormatResourceLine(r.Name, output.StatusEmbedded))
	}
	output.Println(output.FormatCheckmark(fmt.Sprintf("%s woven with the %s loader (stamp %s)",
		output.StyleNoun.Render(mod.Name), res.Variant, res.Stamp)))
	return nil
}

// writeManifest writes m to path, logging how it differs from the manifest
// a previous weave left there.
func writeManifest(modLog *log.Logger, path string, m *manifest.Manifest) error {
	if prev, err := manifest.ReadFile(path); err == nil {
		changes, err := manifest.Compare(prev, m, false)
		if err != nil {
			return err
		}
		if changes.Empty() {
			modLog.Info("resources unchanged since the last weave")
		} else {
			modLog.Info("resources changed since the last weave",
				"added", len(changes.Added),
				"removed", len(changes.Removed),
				"modified", len(changes.Modified),
			)
		}
	}
	return manifest.WriteFile(path, m)
}

// ManifestPath returns the manifest path for a module image path.
func ManifestPath(modulePath string) string {
	return strings.TrimSuffix(modulePath, filepath.Ext(modulePath)) + ManifestSuffix
}

// readModule reads a module image, reporting a missing file as not found.
func readModule(path string) (*module.Module, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, oerrors.NewNotFoundError(
			fmt.Sprintf("module image %s does not exist", path),
			path,
			"dump the built-in images with 'weaver template dump' to see the format",
		)
	}
	return modfile.ReadFile(path)
}

// collectCopyLocal merges --copy-local and --copy-local-dir, skipping the
// cache directory. It returns nil when neither flag was given, which the
// weave rejects.
func collectCopyLocal(opts *weaveOptions, copyLocalSet bool, cacheRoot string) ([]string, error) {
	if !copyLocalSet && opts.copyLocalDir == "" {
		return nil, nil
	}
	paths := append([]string{}, opts.copyLocal...)
	if opts.copyLocalDir == "" {
		return paths, nil
	}

	var found []string
	err := filepath.WalkDir(opts.copyLocalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && samePath(path, cacheRoot) {
			return filepath.SkipDir
		}
		if d.Type().IsRegular() {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, oerrors.NewNotFoundError(
				fmt.Sprintf("copy-local directory %s does not exist", opts.copyLocalDir),
				opts.copyLocalDir, "")
		}
		return nil, fmt.Errorf("listing %s: %w", opts.copyLocalDir, err)
	}
	slices.Sort(found)
	return append(paths, found...), nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
