package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilities(t *testing.T) {
	cs := Capabilities{"a", "b"}
	assert.True(t, cs.Has("a"))
	assert.False(t, cs.Has("c"))
	assert.False(t, Capabilities(nil).Has("a"))
}
