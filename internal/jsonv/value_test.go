package jsonv

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTripKeepsStructure(t *testing.T) {
	in := `{"content_id":7,"tags":["a","b"],"meta":{"free":true,"price":null},"big":12345678901234567890,"ratio":0.25}`

	v, err := Parse([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, KindObject, v.Kind())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))

	// the big integer is not rounded through float64
	obj, _ := v.Fields()
	n, ok := obj["big"].AsNumber()
	require.True(t, ok)
	assert.Equal(t, json.Number("12345678901234567890"), n)
}

func TestMarshal_ObjectKeysAreSorted(t *testing.T) {
	o := Object{"b": Int(2), "a": Int(1), "c": String("x")}

	first, err := json.Marshal(o)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(o)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
	assert.Equal(t, `{"a":1,"b":2,"c":"x"}`, string(first))
}

func TestMarshal_EmptyContainers(t *testing.T) {
	var o Object
	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))

	b, err = json.Marshal(Array())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(b))

	b, err = json.Marshal(Value{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(b))
}

func TestClone_IsDeep(t *testing.T) {
	inner := Object{"x": Int(1)}
	src := Object{"inner": ObjectOf(inner), "list": Array(String("a"))}

	c := src.Clone()
	inner["x"] = Int(99)
	src["added"] = Bool(true)

	assert.NotContains(t, c, "added")
	got, _ := c["inner"].Fields()
	x, _ := got["x"].AsInt64()
	assert.Equal(t, int64(1), x)

	// mutating what an accessor returned does not leak back
	got["x"] = Int(5)
	again, _ := c["inner"].Fields()
	x, _ = again["x"].AsInt64()
	assert.Equal(t, int64(1), x)
}

func TestFromAny(t *testing.T) {
	type item struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: `null`},
		{name: "int", in: 7, want: `7`},
		{name: "float", in: 1.5, want: `1.5`},
		{name: "string", in: "hi", want: `"hi"`},
		{name: "map", in: map[string]any{"a": []any{1, "b"}}, want: `{"a":[1,"b"]}`},
		{name: "struct", in: item{ID: 3, Title: "guide"}, want: `{"id":3,"title":"guide"}`},
		{name: "nan", in: math.NaN(), want: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromAny(tt.in)
			require.NoError(t, err)
			b, err := json.Marshal(v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestFromAny_Unsupported(t *testing.T) {
	_, err := FromAny(make(chan int))
	assert.Error(t, err)
}

func TestNumber_RejectsNonNumbers(t *testing.T) {
	_, err := Number("12.5e3")
	assert.NoError(t, err)

	for _, bad := range []json.Number{"", "abc", `"1"`, "1,2"} {
		_, err := Number(bad)
		assert.Error(t, err, "literal %q", bad)
	}
}

func TestParseObject(t *testing.T) {
	o, err := ParseObject([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.True(t, o.Equal(Object{"a": Int(1)}))

	o, err = ParseObject([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, o)

	_, err = ParseObject([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = ParseObject([]byte(`{`))
	assert.Error(t, err)
}

func TestObject_ScanAndValue(t *testing.T) {
	src := Object{"content_id": Int(7), "slug": String("go-guide")}

	dv, err := src.Value()
	require.NoError(t, err)

	var fromBytes Object
	require.NoError(t, fromBytes.Scan(dv))
	assert.True(t, src.Equal(fromBytes))

	var fromString Object
	require.NoError(t, fromString.Scan(`{"content_id":7,"slug":"go-guide"}`))
	assert.True(t, src.Equal(fromString))

	var fromNil Object
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	assert.Error(t, fromNil.Scan(42))
}

func TestEqual(t *testing.T) {
	a := Array(Int(1), ObjectOf(Object{"k": Bool(true)}))
	b := Array(Int(1), ObjectOf(Object{"k": Bool(true)}))
	c := Array(Int(1), ObjectOf(Object{"k": Bool(false)}))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, Int(1).Equal(String("1")))
}
