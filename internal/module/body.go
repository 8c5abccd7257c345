package module

import "fmt"

// Operand is an instruction operand: a literal, a symbol reference, a local
// or argument index, or one or more branch labels.
type Operand interface {
	isOperand()
}

// String is a string literal operand.
type String string

// Int32 is a 32-bit integer literal operand.
type Int32 int32

// Int64 is a 64-bit integer literal operand.
type Int64 int64

// Float64 is a floating point literal operand.
type Float64 float64

// Local is a local variable index.
type Local int

// Arg is a parameter index.
type Arg int

// Label is the index of an instruction in the same body.
type Label int

// Labels is a switch jump table.
type Labels []Label

// NoLabel marks an absent exception region boundary.
const NoLabel Label = -1

func (String) isOperand() {}
func (Int32) isOperand() {}
func (Int64) isOperand() {}
func (Float64) isOperand() {}
func (Local) isOperand() {}
func (Arg) isOperand() {}
func (Label) isOperand() {}
func (Labels) isOperand() {}
func (*TypeRef) isOperand() {}
func (*MethodRef) isOperand() {}
func (*FieldRef) isOperand() {}

// Instruction is an opcode and its operand.
type Instruction struct {
	Op      Opcode
	Operand Operand
}

// Ins creates an instruction.
func Ins(op Opcode, operand Operand) Instruction {
	return Instruction{Op: op, Operand: operand}
}

// String renders the instruction in assembler syntax.
func (i Instruction) String() string {
	if i.Operand == nil {
		return i.Op.String()
	}
	switch v := i.Operand.(type) {
	case String:
		return fmt.Sprintf("%s %q", i.Op, string(v))
	case Label:
		return fmt.Sprintf("%s IL_%04d", i.Op, int(v))
	case fmt.Stringer:
		return fmt.Sprintf("%s %s", i.Op, v.String())
	default:
		return fmt.Sprintf("%s %v", i.Op, v)
	}
}

// HandlerKind is the kind of an exception region's handler.
type HandlerKind uint8

const (
	HandlerCatch HandlerKind = iota
	HandlerFilter
	HandlerFinally
	HandlerFault
)

// String returns the handler kind's name.
func (k HandlerKind) String() string {
	switch k {
	case HandlerCatch:
		return "catch"
	case HandlerFilter:
		return "filter"
	case HandlerFinally:
		return "finally"
	case HandlerFault:
		return "fault"
	default:
		return fmt.Sprintf("handler(%d)", uint8(k))
	}
}

// ExceptionHandler is a protected region and its handler. End boundaries are
// exclusive; NoLabel means "absent" or, for an end, "end of body".
type ExceptionHandler struct {
	Kind         HandlerKind
	TryStart     Label
	TryEnd       Label
	HandlerStart Label
	HandlerEnd   Label
	FilterStart  Label
	CatchType    *TypeRef
}

// NewExceptionHandler creates a handler with every boundary absent.
func NewExceptionHandler(kind HandlerKind) ExceptionHandler {
	return ExceptionHandler{
		Kind:         kind,
		TryStart:     NoLabel,
		TryEnd:       NoLabel,
		HandlerStart: NoLabel,
		HandlerEnd:   NoLabel,
		FilterStart:  NoLabel,
	}
}

// Labels returns pointers to every boundary of the region.
func (h *ExceptionHandler) Labels() []*Label {
	return []*Label{&h.TryStart, &h.TryEnd, &h.HandlerStart, &h.HandlerEnd, &h.FilterStart}
}

// Body is a method's local variables, instruction stream and exception regions.
type Body struct {
	InitLocals   bool
	Locals       []*TypeRef
	Instructions []Instruction
	Handlers     []ExceptionHandler
}

// Len returns the number of instructions.
func (b *Body) Len() int { return len(b.Instructions) }

// Append adds instructions at the end of the body.
func (b *Body) Append(ins ...Instruction) {
	b.Instructions = append(b.Instructions, ins...)
}

// InsertBefore inserts instructions before index i. Every label that pointed
// at index i or later is moved along, so branches and exception regions keep
// targeting the same instructions they targeted before.
func (b *Body) InsertBefore(i int, ins ...Instruction) error {
	if i < 0 || i > len(b.Instructions) {
		return fmt.Errorf("insert position %d outside body of %d instructions", i, len(b.Instructions))
	}
	n := len(ins)
	if n == 0 {
		return nil
	}
	shift := func(l Label) Label {
		if l != NoLabel && int(l) >= i {
			return l + Label(n)
		}
		return l
	}
	for k := range b.Instructions {
		switch v := b.Instructions[k].Operand.(type) {
		case Label:
			b.Instructions[k].Operand = shift(v)
		case Labels:
			moved := make(Labels, len(v))
			for j, l := range v {
				moved[j] = shift(l)
			}
			b.Instructions[k].Operand = moved
		}
	}
	for k := range b.Handlers {
		for _, l := range b.Handlers[k].Labels() {
			*l = shift(*l)
		}
	}
	out := make([]Instruction, 0, len(b.Instructions)+n)
	out = append(out, b.Instructions[:i]...)
	out = append(out, ins...)
	out = append(out, b.Instructions[i:]...)
	b.Instructions = out
	return nil
}

// Validate checks that every branch target and region boundary points into
// the body and that every operand has the shape its opcode expects.
func (b *Body) Validate() error {
	n := len(b.Instructions)
	inRange := func(l Label) bool { return l == NoLabel || (l >= 0 && int(l) < n) }
	for i, in := range b.Instructions {
		if err := checkOperand(in); err != nil {
			return fmt.Errorf("IL_%04d: %w", i, err)
		}
		switch v := in.Operand.(type) {
		case Label:
			if v == NoLabel || !inRange(v) {
				return fmt.Errorf("IL_%04d: branch target %d out of range", i, v)
			}
		case Labels:
			for _, l := range v {
				if l == NoLabel || !inRange(l) {
					return fmt.Errorf("IL_%04d: switch target %d out of range", i, l)
				}
			}
		case Local:
			if int(v) < 0 || int(v) >= len(b.Locals) {
				return fmt.Errorf("IL_%04d: local %d out of range", i, v)
			}
		}
	}
	for i, h := range b.Handlers {
		for _, l := range h.Labels() {
			if !inRange(*l) {
				return fmt.Errorf("exception handler %d: boundary %d out of range", i, *l)
			}
		}
	}
	return nil
}

func checkOperand(in Instruction) error {
	kind := in.Op.OperandKind()
	ok := false
	switch kind {
	case OperandNone:
		ok = in.Operand == nil
	case OperandString:
		_, ok = in.Operand.(String)
	case OperandInt32:
		_, ok = in.Operand.(Int32)
	case OperandInt64:
		_, ok = in.Operand.(Int64)
	case OperandFloat64:
		_, ok = in.Operand.(Float64)
	case OperandType:
		t, isType := in.Operand.(*TypeRef)
		ok = isType && t != nil
	case OperandMethod:
		m, isMethod := in.Operand.(*MethodRef)
		ok = isMethod && m != nil
	case OperandField:
		f, isField := in.Operand.(*FieldRef)
		ok = isField && f != nil
	case OperandLabel:
		_, ok = in.Operand.(Label)
	case OperandLabels:
		_, ok = in.Operand.(Labels)
	case OperandLocal:
		_, ok = in.Operand.(Local)
	case OperandArg:
		_, ok = in.Operand.(Arg)
	case OperandToken:
		switch v := in.Operand.(type) {
		case *TypeRef:
			ok = v != nil
		case *MethodRef:
			ok = v != nil
		case *FieldRef:
			ok = v != nil
		}
	}
	if !ok {
		return fmt.Errorf("%s: unexpected operand %T", in.Op, in.Operand)
	}
	return nil
}
