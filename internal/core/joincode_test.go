package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCodeShape(t *testing.T) {
	g := NewJoinCodeGenerator(0)
	for i := 0; i < 50; i++ {
		code, err := g.Next(func(string) bool { return false })
		require.NoError(t, err)
		assert.Len(t, code, DefaultJoinCodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(DefaultJoinCodeAlphabet, c), "unexpected rune %q", c)
		}
	}
}

func TestJoinCodeAvoidsTaken(t *testing.T) {
	g := &JoinCodeGenerator{Length: 1, Alphabet: "xy", MaxAttempts: 100}
	code, err := g.Next(func(c string) bool { return c == "x" })
	require.NoError(t, err)
	assert.Equal(t, "y", code)

	_, err = g.Next(func(string) bool { return true })
	assert.ErrorIs(t, err, ErrJoinCodeExhausted)
}

func TestNormalizeJoinCode(t *testing.T) {
	assert.Equal(t, "ab12", NormalizeJoinCode(" AB12\n"))
}
