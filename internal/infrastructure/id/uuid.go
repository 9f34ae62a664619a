package id

import "github.com/google/uuid"

// UUIDGenerator issues random plan identifiers with a stable prefix so they
// are recognizable in logs and client payloads.
type UUIDGenerator struct {
	prefix string
}

func NewUUIDGenerator(prefix string) *UUIDGenerator {
	return &UUIDGenerator{prefix: prefix}
}

func (g *UUIDGenerator) NewID() string {
	return g.prefix + uuid.NewString()
}
