// Package idgen generates leaderboard record IDs and player tokens
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator hands out unique string identifiers
type Generator interface {
	Generate() string
}

// SequentialGenerator yields prefix_1, prefix_2, ... and is meant for tests
type SequentialGenerator struct {
	prefix string
	n      atomic.Uint64
}

// NewSequential creates a sequential generator. An empty prefix yields bare numbers.
func NewSequential(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next ID
func (g *SequentialGenerator) Generate() string {
	return join(g.prefix, strconv.FormatUint(g.n.Add(1), 10))
}

// UUIDGenerator yields random v4 UUIDs, the key format of stored leaderboard rows
type UUIDGenerator struct {
	prefix string
}

// NewUUID creates a UUID generator with an optional prefix
func NewUUID(prefix string) *UUIDGenerator {
	return &UUIDGenerator{prefix: prefix}
}

// Generate returns a fresh UUID
func (g *UUIDGenerator) Generate() string {
	return join(g.prefix, uuid.NewString())
}

func join(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
