package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalObjectID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"workspace://SpacesStore/abc;1.0", "workspace://SpacesStore/abc"},
		{"obj-1;2.3", "obj-1"},
		{"obj-1", "obj-1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalObjectID(tt.in), "input %q", tt.in)
	}
}

func TestBindingRegistry(t *testing.T) {
	sentinel := &struct{ Gateway }{}
	RegisterBinding("registry-test", func(opts any) (Gateway, error) {
		if opts == "fail" {
			return nil, errors.New("bad options")
		}
		return sentinel, nil
	})

	t.Run("constructs through the factory", func(t *testing.T) {
		g, err := NewGateway("registry-test", nil)
		require.NoError(t, err)
		assert.Same(t, Gateway(sentinel), g)
	})

	t.Run("factory errors pass through", func(t *testing.T) {
		_, err := NewGateway("registry-test", "fail")
		assert.Error(t, err)
	})

	t.Run("unknown binding", func(t *testing.T) {
		_, err := NewGateway("no-such-binding", nil)
		assert.Error(t, err)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.Panics(t, func() {
			RegisterBinding("registry-test", func(opts any) (Gateway, error) { return nil, nil })
		})
	})
}

func TestChangeSlice(t *testing.T) {
	entries := []ChangeEntry{
		{ID: "e1", ObjectID: "obj-1", Type: ChangeCreated},
		{ID: "e2", ObjectID: "obj-2", Type: ChangeDeleted},
	}

	t.Run("drains once", func(t *testing.T) {
		it := NewChangeSlice(entries)
		var got []ChangeEntry
		for {
			e, ok := it.Next()
			if !ok {
				break
			}
			got = append(got, e)
		}
		assert.Equal(t, entries, got)
		assert.NoError(t, it.Err())

		_, ok := it.Next()
		assert.False(t, ok)
	})

	t.Run("error only surfaces after the entries", func(t *testing.T) {
		boom := errors.New("boom")
		it := NewChangeSliceErr(entries, boom)

		_, ok := it.Next()
		require.True(t, ok)
		assert.NoError(t, it.Err())

		_, ok = it.Next()
		require.True(t, ok)
		_, ok = it.Next()
		assert.False(t, ok)
		assert.ErrorIs(t, it.Err(), boom)
	})
}
