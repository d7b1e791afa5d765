package idgen

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// TokenLength is the number of hex characters in a player token
const TokenLength = 32

// Uint64Source produces 64 random bits per call
type Uint64Source interface {
	Uint64() uint64
}

// TokenGenerator builds tokens from two independent 64-bit sources.
// Each half is rendered as 16 zero-padded hex digits.
type TokenGenerator struct {
	mu     sync.Mutex
	first  Uint64Source
	second Uint64Source
}

// NewTokenGenerator seeds two PCG generators from crypto/rand
func NewTokenGenerator() *TokenGenerator {
	return NewTokenGeneratorFrom(
		rand.New(rand.NewPCG(cryptoSeed(), cryptoSeed())),
		rand.New(rand.NewPCG(cryptoSeed(), cryptoSeed())),
	)
}

// NewTokenGeneratorFrom builds a generator over explicit sources, for tests
func NewTokenGeneratorFrom(first, second Uint64Source) *TokenGenerator {
	return &TokenGenerator{first: first, second: second}
}

// Generate returns a new token
func (g *TokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%016x%016x", g.first.Uint64(), g.second.Uint64())
}

// IsValidToken reports whether s has the shape of a generated token
func IsValidToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

func cryptoSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand.Read only fails on a broken system
		panic(fmt.Sprintf("crypto/rand.Read failed: %v", err))
	}
	return binary.LittleEndian.Uint64(b[:])
}
