package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewPostgresStore tests the constructor.
func TestNewPostgresStore(t *testing.T) {
	t.Run("creates store with nil querier", func(t *testing.T) {
		store := NewPostgresStore(nil)
		assert.NotNil(t, store)
		assert.Nil(t, store.q)
	})
}
