package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCeil_GrowingThenFixed(t *testing.T) {
	want := []int64{
		1 * SegSize,
		3 * SegSize,
		6 * SegSize,
		10 * SegSize,
		15 * SegSize,
		21 * SegSize,
		28 * SegSize,
		36 * SegSize,
		44 * SegSize,
		52 * SegSize,
	}

	var pos int64
	for i, w := range want {
		got := Ceil(pos)
		require.Equalf(t, w, got, "boundary %d", i)
		pos = got
	}
}

func TestCeil_InsideChunk(t *testing.T) {
	assert.Equal(t, SegSize, Ceil(0))
	assert.Equal(t, SegSize, Ceil(SegSize-1))
	assert.Equal(t, 3*SegSize, Ceil(SegSize))
	assert.Equal(t, 44*SegSize, Ceil(36*SegSize+5))
}

func TestFloor_MatchesCeil(t *testing.T) {
	var pos int64
	for i := 0; i < 20; i++ {
		next := Ceil(pos)
		assert.Equal(t, pos, Floor(pos))
		assert.Equal(t, pos, Floor(next-1))
		pos = next
	}
}

func TestNext_ClampsAndIsMonotonic(t *testing.T) {
	const size = 1000000

	var pos int64
	var steps int
	for {
		npos := Next(pos, size)
		if npos == pos {
			break
		}
		require.Greater(t, npos, pos)
		require.LessOrEqual(t, npos, int64(size))
		pos = npos
		steps++
	}
	assert.Equal(t, int64(size), pos)
	assert.Equal(t, 4, steps)
}

func TestNext_Deterministic(t *testing.T) {
	for _, p := range []int64{0, 1, SegSize, 7 * SegSize, 123456789} {
		assert.Equal(t, Next(p, 1<<40), Next(p, 1<<40))
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, SegSize, Size(0, 10*SegSize))
	assert.Equal(t, int64(100), Size(0, 100))
	assert.Equal(t, int64(0), Size(100, 100))
	assert.Equal(t, int64(0), Size(0, 0))
}
