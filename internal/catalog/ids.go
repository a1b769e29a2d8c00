package catalog

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out identifiers that are unique within one run.
type IDGenerator interface {
	NextID() string
}

// Counter issues increasing decimal identifiers starting at 1.
type Counter struct {
	next atomic.Uint64
}

// NewCounter returns a counter whose first identifier is "1".
func NewCounter() *Counter {
	return &Counter{}
}

// NextID returns the next identifier.
func (c *Counter) NextID() string {
	return strconv.FormatUint(c.next.Add(1), 10)
}

// UUIDGenerator issues random version 4 UUIDs.
type UUIDGenerator struct {
	newUUID func() uuid.UUID
}

// NewUUIDGenerator returns a generator backed by uuid.New.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{newUUID: uuid.New}
}

// NextID returns a fresh UUID string.
func (g *UUIDGenerator) NextID() string {
	return g.newUUID().String()
}
