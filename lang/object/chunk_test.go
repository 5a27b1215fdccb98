package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkWriteKeepsLinesInStep(t *testing.T) {
	var c Chunk
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpTrue, 1)
	c.Write(0x2a, 2)

	require.Equal(t, len(c.Code), len(c.Lines))
	require.Equal(t, []byte{byte(OpNil), byte(OpTrue), 0x2a}, c.Code)
	require.Equal(t, []int32{1, 1, 2}, c.Lines)
	require.Equal(t, 3, c.Len())
}

func TestChunkAddConstant(t *testing.T) {
	var c Chunk
	idx1 := c.AddConstant(Number(1))
	idx2 := c.AddConstant(Number(2))

	require.Equal(t, 0, idx1)
	require.Equal(t, 1, idx2)
	require.Len(t, c.Constants, 2)
	require.Equal(t, Number(1), c.Constants[idx1])
}

func TestOpCodeString(t *testing.T) {
	for op := OpConstant; op <= OpReturn; op++ {
		require.NotEqual(t, "OP_UNKNOWN", op.String(), "opcode %d missing a name", op)
	}
	require.Equal(t, "OP_UNKNOWN", OpCode(255).String())
}

func TestMaxConstants(t *testing.T) {
	require.Equal(t, 256, MaxConstants)
}
