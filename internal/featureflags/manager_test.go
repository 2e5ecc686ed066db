package featureflags

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, "u1"), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, "u1"), name)
	}
	assert.Empty(t, m.Invalid())
}

func TestEnabled_Rollout(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	assert.True(t, m.Enabled("always", ""))
	assert.False(t, m.Enabled("never", "u1"))
	assert.False(t, m.Enabled("canary", ""), "partial rollout skips anonymous callers")

	first := m.Enabled("canary", "user-42")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "user-42"))
	}

	on := 0
	for i := 0; i < 1000; i++ {
		if m.Enabled("canary", "user-"+strconv.Itoa(i)) {
			on++
		}
	}
	assert.Greater(t, on, 100)
	assert.Less(t, on, 400)
}

func TestEnabled_KnownDefaults(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.Enabled(Likes, ""), "likes default on")
	assert.False(t, m.Enabled(CommentEdit, "u1"), "comment edit default off")

	m = NewManager("LIKES = off, Comment_Edit=on")
	assert.False(t, m.Enabled(Likes, "u1"))
	assert.True(t, m.Enabled(CommentEdit, ""))
	assert.Equal(t, []string{CommentEdit, Likes}, m.Names())
}

func TestNewManager_ReportsInvalid(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,w=maybe,v=150%,=on")

	assert.Equal(t, map[string]string{"x": "on", "y": "20%", "z": "off"}, m.Raw())
	assert.Equal(t, []string{"bad", "w=maybe", "v=150%", "=on"}, m.Invalid())
}

func TestSnapshot_IncludesKnownFlags(t *testing.T) {
	snap := NewManager("x=on").Snapshot("u-123")
	assert.Equal(t, map[string]bool{"x": true, Likes: true, CommentEdit: false}, snap)
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(Likes, "u1"))
	assert.Nil(t, m.Invalid())
	assert.Equal(t, map[string]bool{Likes: false, CommentEdit: false}, m.Snapshot(""))
}
