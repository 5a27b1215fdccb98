package object

// OpCode is a single bytecode instruction. All opcodes are one byte; some
// carry an inline operand (noted in the comment on each constant). Jump
// operands are 2 bytes, big-endian; every other operand is 1 byte.
type OpCode uint8

//nolint:revive
const (
	OpConstant     OpCode = iota // u8 idx      -> push constants[idx]
	OpNil                        //             -> push Nil
	OpTrue                       //             -> push true
	OpFalse                      //             -> push false
	OpPop                        //             -> pop
	OpDup                        //             -> push top (duplicate)
	OpGetLocal                   // u8 slot     -> push frame.slots[slot]
	OpSetLocal                   // u8 slot     -> frame.slots[slot] = peek
	OpGetGlobal                  // u8 nameIdx  -> push globals[name]
	OpDefineGlobal               // u8 nameIdx  -> globals[name] = pop
	OpSetGlobal                  // u8 nameIdx  -> globals[name] = peek
	OpEqual                      //             -> push a == b
	OpGreater                    //             -> push a > b
	OpLess                       //             -> push a < b
	OpAdd                        //             -> push a + b
	OpSubtract                   //             -> push a - b
	OpMultiply                   //             -> push a * b
	OpDivide                     //             -> push a / b
	OpNot                        //             -> push is_falsey(pop)
	OpNegate                     //             -> push -pop
	OpPrint                      //             -> print(pop)
	OpJump                       // u16 offset  -> ip += offset
	OpJumpIfFalse                // u16 offset  -> if is_falsey(peek) ip += offset
	OpLoop                       // u16 offset  -> ip -= offset
	OpCall                       // u8 argCount -> call value at peek(argCount)
	OpReturn                     //             -> return pop to caller
)

var opCodeNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpDup:          "OP_DUP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpReturn:       "OP_RETURN",
}

func (op OpCode) String() string {
	if int(op) < len(opCodeNames) {
		return opCodeNames[op]
	}
	return "OP_UNKNOWN"
}

// MaxConstants is the largest number of constants a single Chunk may hold;
// the constant operand is a single byte.
const MaxConstants = 256

// Chunk is a mutable sequence of instructions, a parallel line table (one
// entry per byte of code, for diagnostics), and a constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int32
	Constants []Value
}

// Write appends a single byte of code, recording the source line it came
// from. It is the only primitive for growing Code; Lines always stays the
// same length as Code.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, int32(line))
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends value to the constant pool and returns its index. It
// does not check the pool against MaxConstants; the compiler checks the
// returned index and treats an index of MaxConstants or more as a compile
// error.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the number of bytes of code currently written.
func (c *Chunk) Len() int { return len(c.Code) }
