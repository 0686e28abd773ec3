// Package id generates unique identifiers for transactions and events.
package id

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

var (
	generatorLock sync.Mutex
	generator     IDGenerator = &sequentialIDGenerator{}
)

// Generate returns a new ID from the generator used in the current
// simulation.
func Generate() string {
	generatorLock.Lock()
	g := generator
	generatorLock.Unlock()

	return g.Generate()
}

// UseSequentialIDGenerator makes Generate return increasing decimal numbers.
// Sequential IDs keep runs reproducible and are the default.
func UseSequentialIDGenerator() {
	generatorLock.Lock()
	generator = &sequentialIDGenerator{}
	generatorLock.Unlock()
}

// UseParallelIDGenerator makes Generate return globally unique xid strings.
func UseParallelIDGenerator() {
	generatorLock.Lock()
	generator = parallelIDGenerator{}
	generatorLock.Unlock()
}

// NewIDGenerator returns a standalone sequential generator.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
