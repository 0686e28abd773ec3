package memory

import (
	"errors"
	"fmt"
)

// Capacity units.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

// UnitSize is the granularity of the storage allocation.
const UnitSize uint64 = 4 * KB

// ErrOutOfRange is returned for accesses beyond the storage capacity.
var ErrOutOfRange = errors.New("accessing address beyond the storage capacity")

// A Storage keeps the data of the simulated memory.
//
// The storage is managed in units, similar to pages. Units that are never
// touched are never allocated. A unit, once allocated, stays at the same
// place, so a slice of it can back a direct-access window.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.unitSize = UnitSize
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes the storage holds.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// InRange tells if n bytes at addr lie in the storage.
func (s *Storage) InRange(addr, n uint64) bool {
	return addr < s.capacity && n <= s.capacity-addr
}

// Unit returns the storage unit that holds addr, and the address of its
// first byte. The slice is shorter than a unit at the end of the capacity.
func (s *Storage) Unit(addr uint64) ([]byte, uint64, error) {
	if addr >= s.capacity {
		return nil, 0, ErrOutOfRange
	}

	baseAddr, _ := s.parseAddress(addr)
	unit := s.createOrGetStorageUnit(baseAddr)

	end := min(s.unitSize, s.capacity-baseAddr)

	return unit[:end], baseAddr, nil
}

// NumAllocatedUnits returns how many units have been touched.
func (s *Storage) NumAllocatedUnits() int {
	return len(s.data)
}

func (s *Storage) createOrGetStorageUnit(baseAddr uint64) []byte {
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read returns n bytes at addr.
func (s *Storage) Read(addr, n uint64) ([]byte, error) {
	res := make([]byte, n)
	if err := s.ReadInto(addr, res); err != nil {
		return nil, err
	}

	return res, nil
}

// ReadInto fills buf with the bytes at addr.
func (s *Storage) ReadInto(addr uint64, buf []byte) error {
	return s.walk(addr, uint64(len(buf)), func(unit []byte, off uint64) {
		copy(buf[off:], unit)
	})
}

// Write stores data at addr.
func (s *Storage) Write(addr uint64, data []byte) error {
	return s.walk(addr, uint64(len(data)), func(unit []byte, off uint64) {
		copy(unit, data[off:])
	})
}

// walk visits the unit pieces that back n bytes at addr. Each piece comes
// with its offset from addr.
func (s *Storage) walk(addr, n uint64, visit func(unit []byte, off uint64)) error {
	if !s.InRange(addr, n) {
		return fmt.Errorf("%w: 0x%x+%d, capacity 0x%x",
			ErrOutOfRange, addr, n, s.capacity)
	}

	currAddr := addr
	for currAddr < addr+n {
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		unit := s.createOrGetStorageUnit(baseAddr)

		lenToAccess := min(s.unitSize-inUnitAddr, addr+n-currAddr)
		visit(unit[inUnitAddr:inUnitAddr+lenToAccess], currAddr-addr)

		currAddr += lenToAccess
	}

	return nil
}
