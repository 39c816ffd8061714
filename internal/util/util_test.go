package util

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" Lead@Example.COM ", "lead@example.com"},
		{"a@b.c", "a@b.c"},
		{"not-an-email", ""},
		{"Name <a@b.c>", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEmail(tt.in), tt.in)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "go-for-busy-people", Slugify("  Go for Busy People! "))
	assert.Equal(t, "a-b", Slugify("a -- b"))
	assert.Equal(t, "", Slugify("!!!"))
	assert.True(t, ValidSlug(Slugify("Hello, World")))
	assert.False(t, ValidSlug("Hello World"))
	assert.False(t, ValidSlug("-x"))
}

func TestIDs(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	_, err := ulid.ParseStrict(a)
	require.NoError(t, err)

	tok := NewToken()
	assert.Len(t, tok, 26)
	assert.NotEqual(t, tok, NewToken())
}
