package lcom

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/lcom/pkg/typemodel"
)

// UsageVector records which eligible members one method references. Bit i
// corresponds to members[i] of the classification it was built from.
type UsageVector struct {
	bits *roaring.Bitmap
	size int
}

// NewUsageVector returns an all-clear vector over size members.
func NewUsageVector(size int) UsageVector {
	return UsageVector{bits: roaring.New(), size: size}
}

// Len returns the number of members the vector spans.
func (v UsageVector) Len() int { return v.size }

// Set marks member i as used. Out of range indexes are ignored.
func (v UsageVector) Set(i int) {
	if i < 0 || i >= v.size {
		return
	}
	v.bits.Add(uint32(i))
}

// Has reports whether member i is used.
func (v UsageVector) Has(i int) bool {
	if i < 0 || i >= v.size || v.bits == nil {
		return false
	}
	return v.bits.Contains(uint32(i))
}

// Intersects reports whether both vectors use at least one common member.
func (v UsageVector) Intersects(o UsageVector) bool {
	if v.bits == nil || o.bits == nil {
		return false
	}
	return v.bits.Intersects(o.bits)
}

// Count returns the number of members used.
func (v UsageVector) Count() int {
	if v.bits == nil {
		return 0
	}
	return int(v.bits.GetCardinality())
}

// Members returns the used member indexes in ascending order.
func (v UsageVector) Members() []int {
	if v.bits == nil {
		return nil
	}
	out := make([]int, 0, v.Count())
	for _, i := range v.bits.ToArray() {
		out = append(out, int(i))
	}
	return out
}

// String renders the vector as a row of 1s and 0s.
func (v UsageVector) String() string {
	var sb strings.Builder
	sb.Grow(v.size)
	for i := 0; i < v.size; i++ {
		if v.Has(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// BuildUsage returns one vector per method, index-aligned with methods. For
// each instruction the first member that matches gets its bit set.
func BuildUsage(members []DataMember, methods []*typemodel.Method) []UsageVector {
	vectors := make([]UsageVector, len(methods))
	for mi, m := range methods {
		v := NewUsageVector(len(members))
		for _, ins := range m.Body {
			if ins.Op == typemodel.OpOther {
				continue
			}
			for idx, member := range members {
				if member.Matches(ins) {
					v.Set(idx)
					break
				}
			}
		}
		vectors[mi] = v
	}
	return vectors
}
