package hdlc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFramePipeWriteBytesIsAllOrNothing(t *testing.T) {
	p := NewFramePipe(4)
	assert.True(t, p.WriteBytes([]byte{1, 2, 3, 4}))
	assert.True(t, p.Full())

	assert.False(t, p.WriteBytes([]byte{5}))
	assert.Equal(t, 4, p.Size(), "a rejected write must not partially land")
}

func TestFramePipeMultiFrame(t *testing.T) {
	p := NewFramePipe(64)
	f1 := []byte{0x7E, 0x01, 0x02, 0x7E}
	f2 := []byte{0x7E, 0x03, 0x7E}
	f3 := []byte{0x7E, 0x04, 0x05, 0x06, 0x7E}

	require.True(t, p.WriteBytes(f1))
	require.True(t, p.WriteBytes(f2))
	require.True(t, p.WriteBytes(f3))
	assert.Equal(t, 3, p.FrameCount())

	assert.Equal(t, f1, p.ReadFrame())
	assert.Equal(t, f2, p.ReadFrame())
	assert.Equal(t, f3, p.ReadFrame())
	assert.True(t, p.Empty())
	assert.Equal(t, 0, p.BoundaryCount())
}

func TestFramePipeReadFrameLeavesLeadingJunk(t *testing.T) {
	p := NewFramePipe(64)
	require.True(t, p.WriteBytes([]byte{0xFF, 0xEE})) // junk before any boundary
	require.True(t, p.WriteBytes([]byte{0x7E, 0x01, 0x7E}))

	frame := p.ReadFrame()
	assert.Equal(t, []byte{0x7E, 0x01, 0x7E}, frame)
	assert.Equal(t, 2, p.Size())
}

func TestFramePipeReadFrameDecreasesSizeAndBoundaryCountByTwo(t *testing.T) {
	p := NewFramePipe(64)
	require.True(t, p.WriteBytes([]byte{0x7E, 0x01, 0x02, 0x7E}))
	sizeBefore := p.Size()
	boundaryBefore := p.BoundaryCount()

	frame := p.ReadFrame()
	require.NotNil(t, frame)
	assert.Less(t, p.Size(), sizeBefore)
	assert.Equal(t, boundaryBefore-2, p.BoundaryCount())
}

func TestFramePipeClearPartialResynchronizes(t *testing.T) {
	p := NewFramePipe(64)
	require.True(t, p.WriteBytes([]byte{0x7E, 0x01, 0x02})) // odd boundary count: partial
	assert.True(t, p.PartialFrame())

	p.ClearPartial()
	assert.False(t, p.PartialFrame())
	// Only the opening boundary is discarded; the trailing bytes stay
	// behind as junk ahead of the next start-of-frame.
	assert.Equal(t, []byte{0x01, 0x02}, p.ReadAll())
}

// TestFramePipeBoundaryCountInvariantProperty exercises property 5: under
// any interleaving of atomic writes and single-byte reads, boundary_count
// always equals the number of 0x7E bytes actually stored.
func TestFramePipeBoundaryCountInvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 32).Draw(t, "capacity")
		p := NewFramePipe(capacity)
		shadow := make([]byte, 0, capacity)

		steps := rapid.IntRange(1, 64).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "doWrite") {
				n := rapid.IntRange(0, capacity).Draw(t, "writeLen")
				data := rapid.SliceOfN(rapid.SampledFrom([]byte{0x7E, 0x7D, 0x00, 0x01}), n, n).Draw(t, "data")
				if p.WriteBytes(data) {
					shadow = append(shadow, data...)
				}
			} else if len(shadow) > 0 {
				b := p.Read()
				assert.Equal(t, shadow[0], b)
				shadow = shadow[1:]
			}

			want := 0
			for _, b := range shadow {
				if b == FrameBoundary {
					want++
				}
			}
			assert.Equal(t, want, p.BoundaryCount())
			assert.LessOrEqual(t, p.Size(), p.Capacity())
		}
	})
}
