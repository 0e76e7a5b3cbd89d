package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"null", Null(), `null`},
		{"true", Bool(true), `true`},
		{"false", Bool(false), `false`},
		{"int", Int(5), `5`},
		{"negative int", Int(-42), `-42`},
		{"integral float keeps fraction", Float(5), `5.0`},
		{"float", Float(19.95), `19.95`},
		{"large float", Float(1e21), `1e+21`},
		{"string", String("Acme"), `"Acme"`},
		{"empty string", String(""), `""`},
		{"numeric string", String("5"), `"5"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestValue_MarshalJSON_NonFinite(t *testing.T) {
	_, err := Float(math.NaN()).MarshalJSON()
	assert.True(t, errors.Is(err, ErrUnsupportedValue))

	_, err = Float(math.Inf(1)).MarshalJSON()
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}

func TestValue_UnmarshalJSON_KeepsKind(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{`null`, Null()},
		{`true`, Bool(true)},
		{`7`, Int(7)},
		{`7.0`, Float(7)},
		{`1e3`, Float(1000)},
		{`"7"`, String("7")},
		{`""`, String("")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.True(t, tt.want.Equal(v), "got %v (%s)", v, v.Kind())
		})
	}
}

func TestValue_UnmarshalJSON_Invalid(t *testing.T) {
	var v Value
	err := v.UnmarshalJSON([]byte(`[1]`))
	assert.Error(t, err)
}

func TestValue_Equal_IsStrict(t *testing.T) {
	assert.True(t, Int(5).Equal(Int(5)))
	assert.False(t, Int(5).Equal(Float(5)))
	assert.False(t, Int(5).Equal(String("5")))
	assert.False(t, String("a").Equal(String("A")))
	assert.True(t, Null().Equal(Null()))
	assert.False(t, Null().Equal(String("")))
}

func TestValue_Predicates(t *testing.T) {
	assert.True(t, Null().IsNull())
	assert.False(t, String("").IsNull())
	assert.True(t, String("").IsBlank())
	assert.False(t, String(" ").IsBlank())
	assert.False(t, Int(0).IsBlank())

	i, ok := Int(3).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(3), i)

	_, ok = Int(3).AsString()
	assert.False(t, ok)

	assert.Nil(t, Null().Interface())
	assert.Equal(t, "null", Null().String())
	assert.Equal(t, "2.5", Float(2.5).String())
}

func TestValueOf(t *testing.T) {
	s := "x"
	n := int64(9)
	var nilString *string

	tests := []struct {
		name string
		in   interface{}
		want Value
	}{
		{"nil", nil, Null()},
		{"bool", true, Bool(true)},
		{"int", 3, Int(3)},
		{"int32", int32(3), Int(3)},
		{"uint16", uint16(3), Int(3)},
		{"float32", float32(0.5), Float(0.5)},
		{"string", "abc", String("abc")},
		{"bytes", []byte("abc"), String("abc")},
		{"string pointer", &s, String("x")},
		{"int64 pointer", &n, Int(9)},
		{"nil pointer", nilString, Null()},
		{"value", Float(1.5), Float(1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v (%s)", got, got.Kind())
		})
	}
}

func TestValueOf_Unsupported(t *testing.T) {
	_, err := ValueOf(struct{}{})
	assert.True(t, errors.Is(err, ErrUnsupportedValue))

	_, err = ValueOf(uint64(1))
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}
