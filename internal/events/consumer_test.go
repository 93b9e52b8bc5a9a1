package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastGroup(t *testing.T) {
	a := broadcastGroup("tsudoi")
	b := broadcastGroup("tsudoi")
	assert.True(t, strings.HasPrefix(a, "tsudoi-"))
	assert.True(t, strings.HasPrefix(b, "tsudoi-"))
	assert.NotEqual(t, a, b, "two consumers must never share a group")
}
