// Package weaver runs a complete weave: it embeds the dependencies of a
// module, stamps and clones the loader template into it and fills the
// loader's lookup tables.
package weaver

import (
	"context"
	"strings"

	"github.com/opmodel/weaver/internal/cache"
	"github.com/opmodel/weaver/internal/checksum"
	"github.com/opmodel/weaver/internal/classify"
	"github.com/opmodel/weaver/internal/clone"
	"github.com/opmodel/weaver/internal/embed"
	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/output"
	"github.com/opmodel/weaver/internal/resname"
	"github.com/opmodel/weaver/internal/runtimelib"
)

// Inputs are everything a weave consumes.
type Inputs struct {
	// Module is the module being woven. It is modified in place.
	Module *module.Module

	// Template is the loader template module.
	Template *module.Module

	// Resolver locates the base runtime library and any other module the
	// target or the template imports from.
	Resolver module.Resolver

	// Cache holds compressed and raw payloads across builds.
	Cache *cache.Store

	// CopyLocal lists the dependency files copied next to the module. It
	// must not be nil.
	CopyLocal []string

	// References lists every declared reference of the module.
	References []string

	// PreloadOrder lists logical names whose resources are registered first.
	PreloadOrder []string

	Embed embed.Options

	// Namespace and Name of the loader type; empty selects the default.
	Namespace string
	Name      string
}

// Result describes a completed weave.
type Result struct {
	Module  *module.Module
	Variant clone.Variant
	Stamp   string
	Loader  *module.TypeDef

	// Resources are the embedded weaver resources in table order.
	Resources []*module.Resource
	Checksums []embed.Checksum
	Plan      classify.Plan
}

// Run weaves in.Module. Every failure aborts the weave; the module is left
// partially modified and must be discarded.
func Run(ctx context.Context, in Inputs) (*Result, error) {
	if in.Module == nil || in.Template == nil || in.Resolver == nil || in.Cache == nil {
		return nil, oerrors.Weavingf("module, template, resolver and cache are all required")
	}
	target := in.Module

	// Phase 1 RUNTIME LIBRARY: everything woven code imports.
	refs, err := runtimelib.Find(target, in.Resolver)
	if err != nil {
		return nil, err
	}
	output.Debug("resolved runtime library", "refs", refs.Describe())

	// Phase 2 EMBED: dependencies, symbols and native libraries.
	emb := embed.New(target, in.Cache, in.Embed)
	if err := emb.Prefetch(ctx, in.CopyLocal); err != nil {
		return nil, err
	}
	if err := emb.EmbedAll(in.CopyLocal, in.References); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sums := emb.Checksums()
	FixCase(target, sums)

	// Phase 3 STAMP: aggregate hash over the managed payloads.
	stamp := checksum.Aggregate(target.Resources, resname.BasePrefix)
	output.Debug("computed stamp", "stamp", stamp)

	// Phase 4 CLONE: the loader variant the embedded payloads need.
	variant := clone.SelectVariant(in.Embed.CreateTemporaryAssemblies, emb.HasUnmanaged())
	loader, err := clone.Clone(in.Template, target, in.Resolver, clone.Options{
		Variant:   variant,
		Namespace: in.Namespace,
		Name:      in.Name,
		Stamp:     stamp,
		Attribute: refs.CompilerGenerated,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 5 CLASSIFY: lookup tables and checksums into the initializer.
	plan := classify.Classify(classify.Order(target.ResourceNames(), in.PreloadOrder), variant == clone.TempFiles)
	if err := classify.Inject(loader.StaticConstructor, loader.Fields, refs, plan); err != nil {
		return nil, err
	}
	if err := classify.InjectChecksums(loader.StaticConstructor, loader.Fields.Checksums, refs, sums); err != nil {
		return nil, err
	}

	// Phase 6 VERIFY: every reference in the cloned loader resolves. The rest
	// of the module may call into dependencies that are only available as
	// embedded payloads.
	if err := module.VerifyType(target, loader.Type, in.Resolver); err != nil {
		return nil, oerrors.NewConsistencyError("verify woven module", "", err.Error())
	}

	output.Debug("weave complete",
		"module", target.Name,
		"variant", variant.String(),
		"resources", len(plan),
		"checksums", len(sums),
	)

	return &Result{
		Module:    target,
		Variant:   variant,
		Stamp:     stamp,
		Loader:    loader.Type,
		Resources: weaverResources(target),
		Checksums: sums,
		Plan:      plan,
	}, nil
}

// FixCase lower-cases every managed resource name, and the checksum entries
// recorded for them. The loader looks resources up by lower-cased name.
func FixCase(m *module.Module, sums []embed.Checksum) {
	for _, r := range m.Resources {
		r.Name = fixCase(r.Name)
	}
	for i := range sums {
		sums[i].Resource = fixCase(sums[i].Resource)
	}
}

func fixCase(name string) string {
	if strings.HasPrefix(name, resname.Base.Prefix()) {
		return strings.ToLower(name)
	}
	return name
}

func weaverResources(m *module.Module) []*module.Resource {
	var out []*module.Resource
	for _, r := range m.Resources {
		if resname.HasPrefix(r.Name) {
			out = append(out, r)
		}
	}
	return out
}
