package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertiesSet(t *testing.T) {
	var p Properties

	assert.False(t, p.Set("a", ""), "deleting a missing key is a no-op")
	assert.Nil(t, p)

	assert.True(t, p.Set("a", "1"))
	assert.False(t, p.Set("a", "1"), "same value is a no-op")
	assert.True(t, p.Set("a", "2"))

	v, ok := p.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	assert.True(t, p.Set("a", ""))
	_, ok = p.Get("a")
	assert.False(t, ok)
}

func TestPropertiesGetDistinguishesAbsence(t *testing.T) {
	p := Properties{"x": "y"}
	_, ok := p.Get("missing")
	assert.False(t, ok)

	var empty Properties
	_, ok = empty.Get("x")
	assert.False(t, ok)
}

func TestPropertiesMerge(t *testing.T) {
	p := Properties{"keep": "1", "drop": "2", "same": "3"}
	changed := p.Merge(map[string]string{
		"drop":  "",
		"same":  "3",
		"added": "4",
		"ghost": "",
	})
	assert.Equal(t, []string{"added", "drop"}, changed)
	assert.Equal(t, Properties{"keep": "1", "same": "3", "added": "4"}, p)

	assert.Nil(t, p.Merge(map[string]string{"keep": "1", "nothing": ""}))
}

func TestCloneIsIndependent(t *testing.T) {
	room := RoomInfo{UUID: "r", Properties: Properties{"a": "1"}}
	c := room.Clone()
	c.Properties.Set("a", "2")
	v, _ := room.Properties.Get("a")
	assert.Equal(t, "1", v)

	assert.Nil(t, Properties{}.Clone())
}
