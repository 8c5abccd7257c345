package templates

import (
	"fmt"

	"github.com/opmodel/weaver/internal/module"
)

// asm assembles a method body with named branch targets.
type asm struct {
	body    module.Body
	labels  map[string]int
	fixups  []fixup
	regions []region
}

type fixup struct {
	at    int
	label string
}

type region struct {
	kind      module.HandlerKind
	labels    [5]string // try start, try end, handler start, handler end, filter start
	catchType *module.TypeRef
}

func newAsm(locals ...*module.TypeRef) *asm {
	return &asm{
		body:   module.Body{InitLocals: len(locals) > 0, Locals: locals},
		labels: make(map[string]int),
	}
}

// emit appends an instruction.
func (a *asm) emit(op module.Opcode, operand module.Operand) *asm {
	a.body.Append(module.Ins(op, operand))
	return a
}

// op appends an instruction without operand.
func (a *asm) op(ops ...module.Opcode) *asm {
	for _, op := range ops {
		a.emit(op, nil)
	}
	return a
}

// branch appends a branch to label.
func (a *asm) branch(op module.Opcode, label string) *asm {
	a.fixups = append(a.fixups, fixup{at: a.body.Len(), label: label})
	return a.emit(op, module.Label(module.NoLabel))
}

// mark binds label to the next instruction.
func (a *asm) mark(label string) *asm {
	a.labels[label] = a.body.Len()
	return a
}

// try records an exception region. An empty filter label means no filter.
func (a *asm) try(kind module.HandlerKind, tryStart, tryEnd, handlerStart, handlerEnd, filterStart string, catchType *module.TypeRef) *asm {
	a.regions = append(a.regions, region{
		kind:      kind,
		labels:    [5]string{tryStart, tryEnd, handlerStart, handlerEnd, filterStart},
		catchType: catchType,
	})
	return a
}

// build resolves labels and returns the body. Templates are static, so an
// unbound label is a programming error.
func (a *asm) build() *module.Body {
	lookup := func(name string) module.Label {
		if name == "" {
			return module.NoLabel
		}
		i, ok := a.labels[name]
		if !ok {
			panic(fmt.Sprintf("templates: unbound label %q", name))
		}
		return module.Label(i)
	}
	for _, f := range a.fixups {
		a.body.Instructions[f.at].Operand = lookup(f.label)
	}
	for _, r := range a.regions {
		h := module.NewExceptionHandler(r.kind)
		for i, l := range h.Labels() {
			*l = lookup(r.labels[i])
		}
		h.CatchType = r.catchType
		a.body.Handlers = append(a.body.Handlers, h)
	}
	if err := a.body.Validate(); err != nil {
		panic(fmt.Sprintf("templates: %v", err))
	}
	body := a.body
	return &body
}
