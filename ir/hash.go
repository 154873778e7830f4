package ir

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/lazyir/types/shapes"
)

// Hash returns a structural fingerprint of the given components.
//
// It is the uniform hashing contract every operation composes into: a node's
// structural hash combines its OpKind, its operands' hashes, and a canonical
// encoding of its scalar parameters, all through this one function. Two
// equal sequences of components always hash equal (within and across runs of
// the same build); it panics on a component type it doesn't know how to
// encode, since silently skipping material would make structurally-different
// nodes hash equal.
//
// Supported component types: OpKind, string, bool, int, uint64, []int,
// dtypes.DType and shapes.Shape.
func Hash(components ...any) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeUint64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	writeInt := func(v int) { writeUint64(uint64(v)) }
	for _, component := range components {
		switch v := component.(type) {
		case OpKind:
			_, _ = d.WriteString(string(v))
		case string:
			_, _ = d.WriteString(v)
		case bool:
			if v {
				writeUint64(1)
			} else {
				writeUint64(0)
			}
		case int:
			writeInt(v)
		case uint64:
			writeUint64(v)
		case []int:
			writeInt(len(v))
			for _, element := range v {
				writeInt(element)
			}
		case dtypes.DType:
			writeUint64(uint64(v))
		case shapes.Shape:
			_, _ = d.WriteString(v.String())
		default:
			exceptions.Panicf("ir.Hash: cannot hash material of type %T", component)
		}
		// Separate components, so ("ab","c") and ("a","bc") hash differently.
		_, _ = d.Write([]byte{0xff})
	}
	return d.Sum64()
}
