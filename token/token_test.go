package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_Truthy(t *testing.T) {
	assert.True(t, Null.Truthy())
	assert.True(t, Bool(true).Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.True(t, Int(1).Truthy())
	assert.False(t, Int(0).Truthy())
	assert.True(t, Float(0.1).Truthy())
	assert.False(t, Float(0).Truthy())
	assert.True(t, String("x").Truthy())
	assert.False(t, String("").Truthy())
	assert.True(t, Map(map[string]Value{}).Truthy())
	assert.True(t, List(nil).Truthy())
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "null", Null.String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "hi", String("hi").String())
	assert.Equal(t, "{a: 1, b: 2}", Map(map[string]Value{"a": Int(1), "b": Int(2)}).String())
	assert.Equal(t, "[1, 2, 3]", List([]Value{Int(1), Int(2), Int(3)}).String())
}

func TestFromError(t *testing.T) {
	v := FromError("boom")
	assert.Equal(t, KindMap, v.Kind())
	assert.Equal(t, "boom", v.Map()["error"].String())
}

func TestFromTransition(t *testing.T) {
	v := FromTransition("t1")
	assert.Equal(t, KindMap, v.Kind())
	assert.Equal(t, "t1", v.Map()["from"].String())
}

func TestValue_ZeroValueIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
}
