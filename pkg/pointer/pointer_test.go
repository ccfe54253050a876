package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	value := String("merchant")
	require.NotNil(t, value)
	assert.Equal(t, "merchant", *value)

	copied := StringCopy(value)
	require.NotNil(t, copied)
	assert.Equal(t, *value, *copied)
	assert.NotSame(t, value, copied)
	assert.Nil(t, StringCopy(nil))

	assert.Same(t, value, StringOrDefault(value, "fallback"))
	assert.Equal(t, "fallback", *StringOrDefault(nil, "fallback"))

	assert.Nil(t, StringIfValid(false, "ignored"))
	assert.Equal(t, "set", *StringIfValid(true, "set"))
}

func TestTo(t *testing.T) {
	remaining := To(uint8(3))
	require.NotNil(t, remaining)
	assert.EqualValues(t, 3, *remaining)
	assert.Nil(t, Copy[uint8](nil))
}
