package module

import "fmt"

// Opcode is an instruction operation code.
type Opcode uint8

// The instruction set used by loader templates.
const (
	Nop Opcode = iota
	Ldnull
	Ldstr
	LdcI4
	LdcI8
	LdcR8
	Ldarg
	Starg
	Ldloc
	Stloc
	Ldloca
	Ldfld
	Stfld
	Ldsfld
	Stsfld
	Call
	Callvirt
	Newobj
	Newarr
	Ldtoken
	Ldftn
	Castclass
	Isinst
	Box
	UnboxAny
	Ldlen
	LdelemRef
	StelemRef
	LdelemU1
	Pop
	Dup
	Add
	Sub
	Ceq
	Clt
	Ret
	Br
	Brtrue
	Brfalse
	Beq
	Bne
	Blt
	Switch
	Leave
	Endfinally
	Endfilter
	Throw
	Rethrow

	opcodeCount
)

// OperandKind is the shape of operand an opcode takes.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandString
	OperandInt32
	OperandInt64
	OperandFloat64
	OperandType
	OperandMethod
	OperandField
	OperandLabel
	OperandLabels
	OperandLocal
	OperandArg
	// OperandToken accepts a type, method or field reference.
	OperandToken
)

type opcodeInfo struct {
	name    string
	operand OperandKind
}

var opcodes = [opcodeCount]opcodeInfo{
	Nop:        {"nop", OperandNone},
	Ldnull:     {"ldnull", OperandNone},
	Ldstr:      {"ldstr", OperandString},
	LdcI4:      {"ldc.i4", OperandInt32},
	LdcI8:      {"ldc.i8", OperandInt64},
	LdcR8:      {"ldc.r8", OperandFloat64},
	Ldarg:      {"ldarg", OperandArg},
	Starg:      {"starg", OperandArg},
	Ldloc:      {"ldloc", OperandLocal},
	Stloc:      {"stloc", OperandLocal},
	Ldloca:     {"ldloca", OperandLocal},
	Ldfld:      {"ldfld", OperandField},
	Stfld:      {"stfld", OperandField},
	Ldsfld:     {"ldsfld", OperandField},
	Stsfld:     {"stsfld", OperandField},
	Call:       {"call", OperandMethod},
	Callvirt:   {"callvirt", OperandMethod},
	Newobj:     {"newobj", OperandMethod},
	Newarr:     {"newarr", OperandType},
	Ldtoken:    {"ldtoken", OperandToken},
	Ldftn:      {"ldftn", OperandMethod},
	Castclass:  {"castclass", OperandType},
	Isinst:     {"isinst", OperandType},
	Box:        {"box", OperandType},
	UnboxAny:   {"unbox.any", OperandType},
	Ldlen:      {"ldlen", OperandNone},
	LdelemRef:  {"ldelem.ref", OperandNone},
	StelemRef:  {"stelem.ref", OperandNone},
	LdelemU1:   {"ldelem.u1", OperandNone},
	Pop:        {"pop", OperandNone},
	Dup:        {"dup", OperandNone},
	Add:        {"add", OperandNone},
	Sub:        {"sub", OperandNone},
	Ceq:        {"ceq", OperandNone},
	Clt:        {"clt", OperandNone},
	Ret:        {"ret", OperandNone},
	Br:         {"br", OperandLabel},
	Brtrue:     {"brtrue", OperandLabel},
	Brfalse:    {"brfalse", OperandLabel},
	Beq:        {"beq", OperandLabel},
	Bne:        {"bne.un", OperandLabel},
	Blt:        {"blt", OperandLabel},
	Switch:     {"switch", OperandLabels},
	Leave:      {"leave", OperandLabel},
	Endfinally: {"endfinally", OperandNone},
	Endfilter:  {"endfilter", OperandNone},
	Throw:      {"throw", OperandNone},
	Rethrow:    {"rethrow", OperandNone},
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opcodeCount)
	for i := Opcode(0); i < opcodeCount; i++ {
		m[opcodes[i].name] = i
	}
	return m
}()

// String returns the opcode mnemonic.
func (o Opcode) String() string {
	if o < opcodeCount {
		return opcodes[o].name
	}
	return fmt.Sprintf("opcode(%d)", uint8(o))
}

// OperandKind returns the operand shape the opcode expects.
func (o Opcode) OperandKind() OperandKind {
	if o < opcodeCount {
		return opcodes[o].operand
	}
	return OperandNone
}

// ParseOpcode looks an opcode up by mnemonic.
func ParseOpcode(name string) (Opcode, error) {
	if o, ok := opcodesByName[name]; ok {
		return o, nil
	}
	return 0, fmt.Errorf("unknown opcode %q", name)
}
