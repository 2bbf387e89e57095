package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryBuiltins(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{
		CondAnd, CondCompareNumbers, CondCompareStrings, CondNot, CondOnce, CondOr,
		CondNumberVariable, CondStringVariable, CondVariableChildCount, CondVariableChildExists,
	}, r.ConditionKinds())
	assert.Equal(t, []string{
		ActClearVariableChildren, ActPushNumber, ActPushString,
		ActRemoveVariableChild, ActSetNumberVariable, ActSetStringVariable,
	}, r.ActionKinds())

	spec, ok := r.Condition(CondStringVariable)
	require.True(t, ok)
	assert.Equal(t, []ParamKind{ParamVariable, ParamOperator, ParamValue}, spec.Params)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	require.NoError(t, a.RegisterAction("Noop", ActionSpec{
		Build: func([]Param) (Action, error) { return func(*Frame) error { return nil }, nil },
	}))

	_, inA := a.Action("Noop")
	_, inB := b.Action("Noop")
	assert.True(t, inA)
	assert.False(t, inB)
}

func TestRegisterRejectsDuplicatesAndIncompleteSpecs(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterCondition(CondOnce, ConditionSpec{Build: buildOnce})
	assert.ErrorContains(t, err, "already registered")

	err = r.RegisterCondition("NoBuilder", ConditionSpec{})
	assert.ErrorContains(t, err, "no builder")

	err = r.RegisterAction("", ActionSpec{Build: buildClearChildren})
	assert.ErrorContains(t, err, "empty")
}

func TestParamKindString(t *testing.T) {
	assert.Equal(t, "variable", ParamVariable.String())
	assert.Equal(t, "operator", ParamOperator.String())
	assert.Equal(t, "value", ParamValue.String())
	assert.Equal(t, "param(7)", ParamKind(7).String())
}
