package gen

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := NewSchemaError("Post", "author", "invalid link", cause)

		assert.Contains(t, err.Error(), "gqlcompose: schema error")
		assert.Contains(t, err.Error(), "type Post")
		assert.Contains(t, err.Error(), "field author")
		assert.Contains(t, err.Error(), "invalid link")
		assert.Contains(t, err.Error(), "underlying error")
	})

	t.Run("Error message with type only", func(t *testing.T) {
		err := &SchemaError{Type: "Post"}
		assert.Contains(t, err.Error(), "type Post")
		assert.NotContains(t, err.Error(), "field")
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("root cause")
		err := NewSchemaError("Post", "", "", cause)

		assert.Equal(t, cause, err.Unwrap())
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("Is matches ErrInvalidSchema", func(t *testing.T) {
		err := NewSchemaError("Post", "", "", nil)
		assert.True(t, errors.Is(err, ErrInvalidSchema))
	})

	t.Run("IsSchemaError helper", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewSchemaError("Post", "title", "test", nil))
		assert.True(t, IsSchemaError(err))
		assert.False(t, IsSchemaError(errors.New("other")))
		assert.False(t, IsSchemaError(nil))
	})
}

func TestPhaseError(t *testing.T) {
	t.Run("Error message", func(t *testing.T) {
		err := NewPhaseError("relations", "File", errors.New("store offline"))

		assert.Equal(t, "gqlcompose: build error in phase relations (type: File): store offline", err.Error())
	})

	t.Run("Message without type", func(t *testing.T) {
		err := &PhaseError{Phase: "query", Message: "no queryable types"}
		assert.Equal(t, "gqlcompose: build error in phase query: no queryable types", err.Error())
	})

	t.Run("Is and helper", func(t *testing.T) {
		cause := errors.New("boom")
		err := fmt.Errorf("build: %w", NewPhaseError("inference", "", cause))
		assert.True(t, errors.Is(err, ErrPhaseFailed))
		assert.True(t, errors.Is(err, cause))
		assert.True(t, IsPhaseError(err))
		assert.False(t, IsPhaseError(cause))
	})
}
