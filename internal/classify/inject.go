package classify

import (
	"github.com/opmodel/weaver/internal/clone"
	"github.com/opmodel/weaver/internal/embed"
	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/output"
	"github.com/opmodel/weaver/internal/runtimelib"
)

// Inject populates the loader's lookup tables from plan. The instructions are
// inserted before the static constructor's final return, in plan order.
func Inject(cctor *module.MethodDef, fields clone.Fields, refs *runtimelib.Refs, plan Plan) error {
	var ins []module.Instruction
	for _, e := range plan {
		switch e.Kind {
		case Assembly, Symbols:
			f := fields.AssemblyNames
			if e.Kind == Symbols {
				f = fields.SymbolNames
			}
			if f == nil {
				return oerrors.NewConsistencyError("inject "+e.Kind.String(), "", "loader has no field for "+e.Resource)
			}
			ins = append(ins, addToDictionary(f, refs.DictionaryAdd, e.Logical, e.Resource)...)
		default:
			f := listField(fields, e.Kind)
			if f == nil {
				return oerrors.NewConsistencyError("inject "+e.Kind.String(), "", "loader has no field for "+e.Resource)
			}
			ins = append(ins, addToList(f, refs.ListAdd, e.Resource)...)
		}
	}
	if err := insertBeforeReturn(cctor, ins); err != nil {
		return err
	}
	output.Debug("injected lookup tables", "entries", len(plan), "instructions", len(ins))
	return nil
}

// InjectChecksums populates the loader's checksum table. Loaders without a
// checksum table are left unchanged.
func InjectChecksums(cctor *module.MethodDef, field *module.FieldRef, refs *runtimelib.Refs, sums []embed.Checksum) error {
	if len(sums) == 0 {
		return nil
	}
	if field == nil {
		output.Debug("loader has no checksum table", "checksums", len(sums))
		return nil
	}
	var ins []module.Instruction
	for _, s := range sums {
		ins = append(ins, addToDictionary(field, refs.DictionaryAdd, s.Resource, s.Checksum)...)
	}
	return insertBeforeReturn(cctor, ins)
}

func listField(fields clone.Fields, kind Kind) *module.FieldRef {
	switch kind {
	case Preload:
		return fields.PreloadList
	case Preload32:
		return fields.Preload32List
	case Preload64:
		return fields.Preload64List
	default:
		return nil
	}
}

func addToDictionary(f *module.FieldRef, add *module.MethodRef, key, value string) []module.Instruction {
	return []module.Instruction{
		module.Ins(module.Ldsfld, f),
		module.Ins(module.Ldstr, module.String(key)),
		module.Ins(module.Ldstr, module.String(value)),
		module.Ins(module.Callvirt, add),
	}
}

func addToList(f *module.FieldRef, add *module.MethodRef, value string) []module.Instruction {
	return []module.Instruction{
		module.Ins(module.Ldsfld, f),
		module.Ins(module.Ldstr, module.String(value)),
		module.Ins(module.Callvirt, add),
	}
}

func insertBeforeReturn(cctor *module.MethodDef, ins []module.Instruction) error {
	if len(ins) == 0 {
		return nil
	}
	if cctor == nil || cctor.Body == nil || cctor.Body.Len() == 0 {
		return oerrors.NewConsistencyError("inject", module.StaticCtorName, "static constructor has no body")
	}
	last := cctor.Body.Len() - 1
	if cctor.Body.Instructions[last].Op != module.Ret {
		return oerrors.NewConsistencyError("inject", module.StaticCtorName, "static constructor does not end in ret")
	}
	if err := cctor.Body.InsertBefore(last, ins...); err != nil {
		return oerrors.NewConsistencyError("inject", module.StaticCtorName, err.Error())
	}
	return nil
}
