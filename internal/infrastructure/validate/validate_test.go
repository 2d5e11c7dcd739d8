package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequired(t *testing.T) {
	v := Required()

	assert.NoError(t, v("value"))
	assert.Error(t, v(""))
	assert.Error(t, v("   "))
}

func TestLengthBetween(t *testing.T) {
	v := LengthBetween(2, 4)

	assert.Error(t, v("a"))
	assert.NoError(t, v("ab"))
	assert.NoError(t, v("abcd"))
	assert.Error(t, v("abcde"))
}

func TestMatches(t *testing.T) {
	v := Matches(`^[a-z0-9-]+$`, "lowercase letters, digits and dashes only")

	assert.NoError(t, v("room-1"))
	err := v("Room 1")
	assert.EqualError(t, err, "lowercase letters, digits and dashes only")
}

func TestField(t *testing.T) {
	v := Field("roomId", Required(), MaxLength(4))

	err := v("")
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "roomId:"))

	assert.Error(t, v("toolong"))
	assert.NoError(t, v("r1"))
}

func TestCompose(t *testing.T) {
	v := Compose(MinLength(2), MaxLength(3))

	assert.Error(t, v("a"))
	assert.NoError(t, v("ab"))
	assert.Error(t, v("abcd"))
}
