// Package chunk computes transfer chunk boundaries.
//
// Boundaries depend only on the absolute offset, so a transfer that is
// restarted or resumed re-plans exactly the same chunks. The first eight
// chunks grow by one segment each (128 KiB, 256 KiB, ... 1 MiB); after that
// every chunk is eight segments long.
package chunk

// SegSize is the planner's unit of granularity.
const SegSize int64 = 128 * 1024

const growSteps = 8

// Ceil returns the end of the chunk that contains p.
func Ceil(p int64) int64 {
	var cp int64
	for i := int64(1); i <= growSteps; i++ {
		np := cp + i*SegSize
		if p >= cp && p < np {
			return np
		}
		cp = np
	}
	return ((p-cp)&-(growSteps*SegSize) + cp) + growSteps*SegSize
}

// Floor returns the start of the chunk that contains p.
func Floor(p int64) int64 {
	var cp int64
	for i := int64(1); i <= growSteps; i++ {
		np := cp + i*SegSize
		if p >= cp && p < np {
			return cp
		}
		cp = np
	}
	return (p-cp)&-(growSteps*SegSize) + cp
}

// Next returns the end of the chunk starting at pos, clamped to size.
// Next(pos, size) == pos means no chunk work remains.
func Next(pos, size int64) int64 {
	npos := Ceil(pos)
	if npos > size {
		npos = size
	}
	return npos
}

// Size returns the length of the chunk starting at pos.
func Size(pos, size int64) int64 {
	if pos >= size {
		return 0
	}
	return Next(pos, size) - pos
}
