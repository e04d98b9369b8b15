package emulator

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

// load builds a machine with the given program image.
func load(t *testing.T, program ...byte) *Chip8 {
	t.Helper()

	c8 := New()
	assert.NoError(t, c8.LoadProgram(program))
	return c8
}

// step executes one instruction that is expected to succeed.
func step(t *testing.T, c8 *Chip8) StepResult {
	t.Helper()

	res, err := c8.Step()
	assert.NoError(t, err)
	return res
}

func countLit(pixels [VIDEO_HEIGHT][VIDEO_WIDTH]bool) int {
	n := 0
	for y := range pixels {
		for x := range pixels[y] {
			if pixels[y][x] {
				n++
			}
		}
	}
	return n
}

func TestNewInitialState(t *testing.T) {
	c8 := New()

	assert.Equal(t, START_ADDRESS, c8.programCounter)
	assert.Equal(t, byte(0), c8.stackPointer)
	assert.Equal(t, byte(0), c8.DelayTimer())
	assert.Equal(t, byte(0), c8.SoundTimer())
	assert.Equal(t, 0, countLit(c8.Display()))

	// fontset occupies the reserved region
	assert.Equal(t, byte(0xF0), c8.memory[FONTSET_START_ADDRESS])
	assert.Equal(t, byte(0x80), c8.memory[FONTSET_START_ADDRESS+79])
	assert.Equal(t, byte(0), c8.memory[START_ADDRESS])
}

func TestLoadProgramTooLarge(t *testing.T) {
	c8 := New()

	image := make([]byte, MEMORY_SIZE-int(START_ADDRESS)+1)
	err := c8.LoadProgram(image)
	assert.True(t, errors.Is(err, ErrProgramTooLarge))

	// load rejected, machine unchanged
	assert.Equal(t, START_ADDRESS, c8.programCounter)
	assert.Equal(t, byte(0), c8.memory[START_ADDRESS])
}

func TestLoadProgramMaximumSize(t *testing.T) {
	c8 := New()

	image := make([]byte, MEMORY_SIZE-int(START_ADDRESS))
	image[0] = 0xAB
	image[len(image)-1] = 0xCD

	assert.NoError(t, c8.LoadProgram(image))
	assert.Equal(t, byte(0xAB), c8.memory[START_ADDRESS])
	assert.Equal(t, byte(0xCD), c8.memory[MEMORY_SIZE-1])
}

func TestLoadProgramClearsPreviousImage(t *testing.T) {
	c8 := load(t, 0x11, 0x22, 0x33, 0x44)
	assert.NoError(t, c8.LoadProgram([]byte{0x55}))

	assert.Equal(t, byte(0x55), c8.memory[START_ADDRESS])
	assert.Equal(t, byte(0), c8.memory[START_ADDRESS+1])
	assert.Equal(t, byte(0), c8.memory[START_ADDRESS+3])
}

func TestReset(t *testing.T) {
	c8 := load(t,
		0x00, 0xE0, // CLS
		0x22, 0x06, // CALL 0x206
	)
	c8.registers[3] = 99
	c8.indexRegister = 0x300
	c8.delayTimer = 10
	c8.soundTimer = 10
	c8.SetKey(4, true)
	c8.pixels[0][0] = true
	step(t, c8)
	step(t, c8)

	c8.Reset()

	assert.Equal(t, START_ADDRESS, c8.programCounter)
	assert.Equal(t, byte(0), c8.stackPointer)
	assert.Equal(t, byte(0), c8.registers[3])
	assert.Equal(t, uint16(0), c8.indexRegister)
	assert.Equal(t, byte(0), c8.delayTimer)
	assert.Equal(t, byte(0), c8.soundTimer)
	assert.False(t, c8.keypad[4])
	assert.Equal(t, 0, countLit(c8.Display()))

	// program discarded, fontset reloaded
	assert.Equal(t, byte(0), c8.memory[START_ADDRESS])
	assert.Equal(t, byte(0xF0), c8.memory[FONTSET_START_ADDRESS])
}

func TestCallReturnRoundTrip(t *testing.T) {
	c8 := load(t,
		0x22, 0x06, // 0x200: CALL 0x206
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0xEE, // 0x206: RET
	)

	step(t, c8)
	assert.Equal(t, uint16(0x206), c8.programCounter)
	assert.Equal(t, byte(1), c8.stackPointer)
	assert.Equal(t, uint16(0x202), c8.stack[0])

	// RET restores the PC to the instruction following the CALL and
	// leaves the stack depth unchanged
	step(t, c8)
	assert.Equal(t, uint16(0x202), c8.programCounter)
	assert.Equal(t, byte(0), c8.stackPointer)
}

func TestStackOverflow(t *testing.T) {
	// CALL 0x200: calls itself forever without returning
	c8 := load(t, 0x22, 0x00)

	for i := 0; i < STACK_DEPTH; i++ {
		step(t, c8)
	}
	assert.Equal(t, byte(STACK_DEPTH), c8.stackPointer)

	_, err := c8.Step()
	assert.True(t, errors.Is(err, ErrStackOverflow))

	// the failed call corrupted nothing
	assert.Equal(t, byte(STACK_DEPTH), c8.stackPointer)
	assert.Equal(t, uint16(0x202), c8.stack[0])
	assert.Equal(t, byte(0xF0), c8.memory[FONTSET_START_ADDRESS])
	assert.Equal(t, byte(0x22), c8.memory[START_ADDRESS])
}

func TestStackUnderflow(t *testing.T) {
	c8 := load(t, 0x00, 0xEE) // RET with empty stack

	_, err := c8.Step()
	assert.True(t, errors.Is(err, ErrStackUnderflow))
	assert.Equal(t, byte(0), c8.stackPointer)
}

func TestTimerDecay(t *testing.T) {
	c8 := load(t,
		0x60, 0x05, // LD V0, 5
		0xF0, 0x15, // LD DT, V0
		0xF0, 0x18, // LD ST, V0
	)
	step(t, c8)
	step(t, c8)
	step(t, c8)

	assert.Equal(t, byte(5), c8.DelayTimer())
	assert.Equal(t, byte(5), c8.SoundTimer())

	for i := 0; i < 5; i++ {
		c8.TickTimers()
	}
	assert.Equal(t, byte(0), c8.DelayTimer())
	assert.Equal(t, byte(0), c8.SoundTimer())

	// clamped at zero, no negative wrap
	c8.TickTimers()
	assert.Equal(t, byte(0), c8.DelayTimer())
	assert.Equal(t, byte(0), c8.SoundTimer())
}

func TestStepDoesNotTouchTimers(t *testing.T) {
	c8 := load(t, 0x60, 0x00) // LD V0, 0
	c8.delayTimer = 7
	c8.soundTimer = 3

	step(t, c8)

	assert.Equal(t, byte(7), c8.DelayTimer())
	assert.Equal(t, byte(3), c8.SoundTimer())
}

func TestReadDelayTimer(t *testing.T) {
	c8 := load(t, 0xF3, 0x07) // LD V3, DT
	c8.delayTimer = 42

	step(t, c8)
	assert.Equal(t, byte(42), c8.registers[3])
}

func TestKeyWaitBlocking(t *testing.T) {
	c8 := load(t, 0xF1, 0x0A) // LD V1, K

	// with no keys pressed the PC never advances
	for i := 0; i < 3; i++ {
		res := step(t, c8)
		assert.True(t, res.WaitingForKey)
		assert.Equal(t, START_ADDRESS, c8.programCounter)
	}

	c8.SetKey(7, true)

	res := step(t, c8)
	assert.False(t, res.WaitingForKey)
	assert.Equal(t, uint16(0x202), c8.programCounter)
	assert.Equal(t, byte(7), c8.registers[1])
}

func TestSetKeyIgnoresOutOfRangeIndex(t *testing.T) {
	c8 := New()
	c8.SetKey(16, true)
	c8.SetKey(0xFF, true)

	for k := range c8.keypad {
		assert.False(t, c8.keypad[k])
	}
}

func TestInstructionFetchOutOfRange(t *testing.T) {
	c8 := load(t, 0x1F, 0xFF) // JP 0xFFF

	step(t, c8)
	assert.Equal(t, uint16(0xFFF), c8.programCounter)

	// the second byte of the instruction at 0xFFF would be at 0x1000
	_, err := c8.Step()
	assert.True(t, errors.Is(err, ErrAddressOutOfRange))
}

func TestInvalidOpcode(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
	}{
		{"SYS instruction", []byte{0x02, 0x00}},
		{"5xy0 family with non-zero low nibble", []byte{0x50, 0x11}},
		{"8xy0 family with unknown operation", []byte{0x80, 0x18}},
		{"9xy0 family with non-zero low nibble", []byte{0x90, 0x12}},
		{"Ex family with unknown operation", []byte{0xE0, 0x01}},
		{"Fx family with unknown operation", []byte{0xF0, 0x4F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c8 := load(t, tt.program...)

			_, err := c8.Step()
			assert.True(t, errors.Is(err, ErrInvalidOpcode))
		})
	}
}

func TestEndToEndClearAndSelfJump(t *testing.T) {
	c8 := load(t,
		0x00, 0xE0, // 0x200: CLS
		0x12, 0x00, // 0x202: JP 0x200 (loop back to the start)
	)

	res := step(t, c8)
	assert.True(t, res.Redraw)

	res = step(t, c8)
	assert.False(t, res.Redraw)
	assert.Equal(t, START_ADDRESS, c8.programCounter)

	// the program loops forever without faulting
	for i := 0; i < 6; i++ {
		step(t, c8)
	}

	assert.Equal(t, 0, countLit(c8.Display()))
}

func TestDisplayReturnsACopy(t *testing.T) {
	c8 := New()
	c8.pixels[5][5] = true

	display := c8.Display()
	display[5][5] = false
	display[0][0] = true

	assert.True(t, c8.pixels[5][5])
	assert.False(t, c8.pixels[0][0])
}

func TestMachinesAreIndependent(t *testing.T) {
	a := load(t, 0x60, 0xAA) // LD V0, 0xAA
	b := load(t, 0x60, 0xBB) // LD V0, 0xBB

	step(t, a)
	step(t, b)

	assert.Equal(t, byte(0xAA), a.registers[0])
	assert.Equal(t, byte(0xBB), b.registers[0])
}
