package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordRegisterFileReservedSlots(t *testing.T) {
	f := NewWordRegisterFile()
	for i := uint(0); i < wordRegReserved; i++ {
		assert.True(t, f.InUse(WordReg(i)), "reserved slot %d should start in-use", i)
	}
	for i := uint(wordRegReserved); i < wordRegCount; i++ {
		assert.False(t, f.InUse(WordReg(i)), "non-reserved slot %d should start free", i)
	}
}

func TestWordRegisterFileAllocSkipsReserved(t *testing.T) {
	f := NewWordRegisterFile()
	r := f.Alloc()
	assert.GreaterOrEqual(t, uint(r), uint(wordRegReserved))
}

func TestWordRegisterFileAllocFreeAreInverse(t *testing.T) {
	f := NewWordRegisterFile()

	var allocated []WordReg
	for i := uint(0); i < wordRegCount-wordRegReserved; i++ {
		r := f.Alloc()
		assert.True(t, f.InUse(r))
		allocated = append(allocated, r)
	}

	for _, r := range allocated {
		f.Free(r)
		assert.False(t, f.InUse(r), "freed slot must report not in use")
	}

	// every non-reserved slot round-trips back to free, and the allocator
	// can hand out the full range again without running into exhaustion.
	for i := uint(0); i < wordRegCount-wordRegReserved; i++ {
		r := f.Alloc()
		assert.False(t, uint(r) < wordRegReserved)
	}
}

func TestWordRegisterFileFreeReservedPanics(t *testing.T) {
	f := NewWordRegisterFile()
	assert.Panics(t, func() { f.Free(WordReg(0)) })
}

func TestWordRegisterFileDoubleFreePanics(t *testing.T) {
	f := NewWordRegisterFile()
	r := f.Alloc()
	f.Free(r)
	assert.Panics(t, func() { f.Free(r) })
}

func TestWordRegisterFileExhaustionPanics(t *testing.T) {
	f := NewWordRegisterFile()
	assert.Panics(t, func() {
		for {
			f.Alloc()
		}
	})
}

func TestVectorRegisterFileAllocFreeAreInverse(t *testing.T) {
	f := NewVectorRegisterFile()

	a := f.Alloc(4)
	b := f.Alloc(8)
	require.Equal(t, uint(4), a.Width)
	require.Equal(t, uint(8), b.Width)
	assert.NotEqual(t, a.Base, b.Base)

	f.Free(a)
	c := f.Alloc(4)
	assert.Equal(t, a.Base, c.Base, "freeing a run must let a same-width alloc reuse its base")
}

func TestVectorRegisterFileFindsFirstRun(t *testing.T) {
	f := NewVectorRegisterFile()

	first := f.Alloc(2)
	second := f.Alloc(2)
	f.Free(first)

	third := f.Alloc(2)
	assert.Equal(t, first.Base, third.Base)
	assert.NotEqual(t, second.Base, third.Base)
}

func TestVectorRegisterFileGrowsWhenNoRunFits(t *testing.T) {
	f := NewVectorRegisterFile()
	r := f.Alloc(512)
	assert.Equal(t, uint(512), r.Width)
	assert.Equal(t, uint(0), r.Base)
}

func TestWordRegStringFormat(t *testing.T) {
	assert.Equal(t, "w7", WordReg(7).String())
}

func TestVecRegStringFormat(t *testing.T) {
	assert.Equal(t, "v12/4", VecReg{Base: 12, Width: 4}.String())
}
