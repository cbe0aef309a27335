package core

import (
	"errors"
	"math/rand/v2"
	"strings"
)

const (
	DefaultJoinCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	DefaultJoinCodeLength   = 4
	defaultJoinCodeAttempts = 64
)

var ErrJoinCodeExhausted = errors.New("no free join code")

// JoinCodeGenerator draws short codes that humans can type.
// Codes are lowercase; lookups go through NormalizeJoinCode.
type JoinCodeGenerator struct {
	Length      int
	Alphabet    string
	MaxAttempts int
}

func NewJoinCodeGenerator(length int) *JoinCodeGenerator {
	if length <= 0 {
		length = DefaultJoinCodeLength
	}
	return &JoinCodeGenerator{
		Length:      length,
		Alphabet:    DefaultJoinCodeAlphabet,
		MaxAttempts: defaultJoinCodeAttempts,
	}
}

// Next returns a code for which taken reports false.
func (g *JoinCodeGenerator) Next(taken func(string) bool) (string, error) {
	var b strings.Builder
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		b.Reset()
		for i := 0; i < g.Length; i++ {
			b.WriteByte(g.Alphabet[rand.IntN(len(g.Alphabet))])
		}
		code := b.String()
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrJoinCodeExhausted
}

func NormalizeJoinCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
