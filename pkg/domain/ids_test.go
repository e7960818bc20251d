package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentityID(t *testing.T) {
	t.Run("valid UUID round-trips", func(t *testing.T) {
		raw := uuid.New().String()
		id, err := ParseIdentityID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, id.String())
		assert.False(t, id.IsNil())
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := ParseIdentityID("not-a-uuid")
		assert.Error(t, err)
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseIdentityID(uuid.Nil.String())
		assert.Error(t, err)
	})
}

func TestIDTypesAreDistinct(t *testing.T) {
	// Compile-time property: the following would not build.
	// var _ IdentityID = ProfileID(uuid.New())
	identityID := NewIdentityID()
	profileID := NewProfileID()
	assert.NotEqual(t, uuid.UUID(identityID), uuid.UUID(profileID))
}

func TestZeroValueIsNil(t *testing.T) {
	var id IdentityID
	assert.True(t, id.IsNil())
	assert.False(t, NewIdentityID().IsNil())
}
