package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opmodel/weaver/internal/module"
)

func TestAsm_Labels(t *testing.T) {
	body := newAsm(tInt32).
		branch(module.Br, "end").
		mark("loop").
		op(module.Nop).
		branch(module.Brtrue, "loop").
		mark("end").
		op(module.Ret).
		build()

	assert.True(t, body.InitLocals)
	assert.Equal(t, module.Label(3), body.Instructions[0].Operand)
	assert.Equal(t, module.Label(1), body.Instructions[2].Operand)
}

func TestAsm_Regions(t *testing.T) {
	body := newAsm().
		mark("try").
		op(module.Nop).
		branch(module.Leave, "out").
		mark("catch").
		op(module.Pop).
		branch(module.Leave, "out").
		mark("out").
		op(module.Ret).
		try(module.HandlerCatch, "try", "catch", "catch", "out", "", tException).
		build()

	assert.False(t, body.InitLocals)
	h := body.Handlers[0]
	assert.Equal(t, module.Label(0), h.TryStart)
	assert.Equal(t, module.Label(2), h.HandlerStart)
	assert.Equal(t, module.Label(4), h.HandlerEnd)
	assert.Equal(t, module.NoLabel, h.FilterStart)
	assert.Same(t, tException, h.CatchType)
}

func TestAsm_UnboundLabelPanics(t *testing.T) {
	assert.Panics(t, func() {
		newAsm().branch(module.Br, "nowhere").op(module.Ret).build()
	})
}
