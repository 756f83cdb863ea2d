package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for _, kind := range []Kind{User, Session, Token, Tag, Note} {
		t.Run(string(kind), func(t *testing.T) {
			v, err := Generate(kind)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(v, string(kind)+"-"), v)
			assert.Len(t, v, len(kind)+1+nanoLength)

			got, ok := KindOf(v)
			require.True(t, ok)
			assert.Equal(t, kind, got)
		})
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for range 500 {
		v := MustGenerate(Note)
		_, dup := seen[v]
		require.False(t, dup, v)
		seen[v] = struct{}{}
	}
}

func TestKindOf_Rejects(t *testing.T) {
	for _, v := range []string{
		"",
		"note",
		"note-short",
		"book-V1StGXR8_Z5jdHi6B-myT",
		"0b7c6f8e-2d7a-4a0f-9c4e-5a1d2b3c4d5e",
	} {
		_, ok := KindOf(v)
		assert.False(t, ok, v)
	}
}
