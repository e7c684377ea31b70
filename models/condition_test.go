package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionDecodesBothComparatorShapes(t *testing.T) {
	raw := `{"stage":"Qualified","score":{"operator":"greater_than","value":5},"meta":{"source":"ads"}}`

	var cond Condition
	require.NoError(t, json.Unmarshal([]byte(raw), &cond))

	stage := cond["stage"]
	assert.True(t, stage.IsLiteral())
	assert.Equal(t, OpEquals, stage.Operator)
	assert.Equal(t, "Qualified", stage.Value)

	score := cond["score"]
	assert.False(t, score.IsLiteral())
	assert.Equal(t, OpGreaterThan, score.Operator)
	assert.Equal(t, 5.0, score.Value)

	// Objects without an operator key are literals.
	meta := cond["meta"]
	assert.True(t, meta.IsLiteral())
	assert.Equal(t, map[string]interface{}{"source": "ads"}, meta.Value)

	out, err := json.Marshal(cond)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestConditionValue(t *testing.T) {
	v, err := Condition(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	var cond Condition
	require.NoError(t, cond.Scan(nil))
	assert.Empty(t, cond)

	require.NoError(t, cond.Scan([]byte(`{"stage":"New"}`)))
	assert.Equal(t, Literal("New"), cond["stage"])
}
