package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsValidation(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", Validation("All fields are required"))

	ve, ok := AsValidation(wrapped)
	require.True(t, ok)
	assert.Equal(t, "All fields are required", ve.Msg)

	_, ok = AsValidation(fmt.Errorf("insert: %w", ErrStorage))
	assert.False(t, ok)
}
