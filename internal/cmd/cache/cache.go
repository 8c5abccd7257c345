// Package cache provides the `weaver cache` command group.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opmodel/weaver/internal/cache"
	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/config"
	"github.com/opmodel/weaver/internal/output"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var cacheDir string

	c := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the payload cache",
		Long: `The payload cache keeps every dependency weaver embedded, raw and
compressed, keyed by the SHA-1 of the source file. Entries never change
once written; pruning old ones is always safe.`,
	}

	c.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Payload cache directory (env: WEAVER_CACHE_DIR)")

	c.AddCommand(
		newListCmd(gc, &cacheDir),
		newPruneCmd(gc, &cacheDir),
	)

	return c
}

// openStore resolves the cache directory the same way a weave does for a
// module in the current directory.
func openStore(gc *cmdtypes.GlobalConfig, flag string) (*cache.Store, error) {
	cfg, err := gc.Loaded()
	if err != nil {
		return nil, err
	}
	dir := config.ResolveCacheDir(flag, cfg.CacheDir, "")
	config.LogResolvedValues(dir)
	return cache.Open(dir.Value)
}

func newListCmd(gc *cmdtypes.GlobalConfig, cacheDir *string) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cache entries",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openStore(gc, *cacheDir)
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				output.Println("Cache " + store.Root() + " is empty.")
				return nil
			}

			tbl := output.NewTable("CHECKSUM", "RESOURCE", "SIZE", "MODIFIED")
			var total int64
			for _, e := range entries {
				tbl.Row(e.Checksum, e.Resource, output.FormatSize(e.Size), e.ModTime.Format(time.DateTime))
				total += e.Size
			}
			output.Println(tbl.String())
			output.Println(output.StyleSummary.Render(
				fmt.Sprintf("%d entries, %s in %s", len(entries), output.FormatSize(total), store.Root())))
			return nil
		},
	}
}

func newPruneCmd(gc *cmdtypes.GlobalConfig, cacheDir *string) *cobra.Command {
	var olderThan time.Duration

	c := &cobra.Command{
		Use:   "prune",
		Short: "Remove cache entries not written recently",
		Long: `Removes cache entries last written more than --older-than ago.
Use --older-than 0 to empty the cache.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openStore(gc, *cacheDir)
			if err != nil {
				return err
			}
			removed, err := store.Prune(time.Now().Add(-olderThan))
			for _, e := range removed {
				output.Println(output.FormatResourceLine(e.FileName(), output.StatusPruned))
			}
			if err != nil {
				return err
			}
			output.Println(output.FormatCheckmark(fmt.Sprintf("Pruned %d entries from %s",
				len(removed), output.StyleNoun.Render(store.Root()))))
			return nil
		},
	}

	c.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Minimum age of pruned entries")

	return c
}
