package emulator

import (
	"math/rand/v2"

	"github.com/pkg/errors"
)

/*
The CHIP-8 has 4096 bytes of memory, meaning the address space is from 0x000 to 0xFFF.
The address space is segmented into two sections:

	0x000-0x1FF: Reserved for the interpreter. Programs must never read from or write to
	             this region. The built-in font sprites live at 0x050-0x09F because ROMs
	             address them through the FX29 instruction.
	0x200-0xFFF: Program space. ROM images are loaded starting at 0x200.
*/
const START_ADDRESS uint16 = 0x200
const FONTSET_START_ADDRESS uint16 = 0x50

const MEMORY_SIZE = 4096
const STACK_DEPTH = 16

const VIDEO_WIDTH = 64
const VIDEO_HEIGHT = 32

// Chip8 holds the complete architectural state of one CHIP-8 machine. A Chip8
// owns all of its state exclusively: hosts that want several emulated
// sessions construct several machines, and no locking is needed because a
// single machine is never stepped concurrently.
type Chip8 struct {
	// 16 general purpose 8-bit registers V0-VF. VF doubles as the
	// carry/borrow/collision flag output of several instructions.
	registers [16]byte

	// 4k bytes of memory
	memory [MEMORY_SIZE]byte

	// The index register I holds memory addresses for the sprite and
	// memory-block instructions. 16 bits because 0xFFF does not fit in 8.
	indexRegister uint16

	// The program counter points at the next instruction to fetch.
	programCounter uint16

	// 16-level stack of return addresses, and the index of the next free
	// slot.
	stack        [STACK_DEPTH]uint16
	stackPointer byte

	// Delay and sound timers. While non-zero they decrement at 60Hz,
	// driven by the host through TickTimers, never by Step.
	delayTimer byte
	soundTimer byte

	// The opcode currently being executed, kept for error reporting.
	opcode uint16

	// Pressed state of the 16-key keypad, written by the host through
	// SetKey.
	keypad [16]bool

	// The monochrome framebuffer. Mutated only by the draw and
	// clear-screen instructions, via XOR compositing.
	pixels [VIDEO_HEIGHT][VIDEO_WIDTH]bool

	// Per-machine generator for the CXKK instruction so that independent
	// machines never share state.
	rng *rand.Rand
}

// StepResult reports what one instruction asked of the host.
type StepResult struct {
	// Redraw is true when the instruction changed the framebuffer
	// (clear-screen or draw-sprite), so hosts can skip redundant
	// rendering.
	Redraw bool

	// WaitingForKey is true when the instruction was a key-wait (FX0A)
	// and no key was pressed. The program counter was left pointing at
	// the key-wait, so the emulated program makes no forward progress
	// until the host reports a key press through SetKey.
	WaitingForKey bool
}

// New creates a machine with zeroed registers and memory, the fontset loaded
// into the reserved region, and the program counter at the start address. A
// program must be loaded with LoadProgram before stepping does anything
// useful.
func New() *Chip8 {
	c8 := &Chip8{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	c8.Reset()
	return c8
}

// Reset reinitialises all machine state as at construction: memory zeroed
// except for the font region, registers and timers zeroed, stack empty,
// display cleared, keypad cleared, PC back at the start address. Any loaded
// program is discarded.
func (c8 *Chip8) Reset() {
	c8.registers = [16]byte{}
	c8.memory = [MEMORY_SIZE]byte{}
	c8.stack = [STACK_DEPTH]uint16{}
	c8.keypad = [16]bool{}
	c8.pixels = [VIDEO_HEIGHT][VIDEO_WIDTH]bool{}

	c8.indexRegister = 0
	c8.stackPointer = 0
	c8.delayTimer = 0
	c8.soundTimer = 0
	c8.opcode = 0
	c8.programCounter = START_ADDRESS

	for k, v := range fontset {
		c8.memory[FONTSET_START_ADDRESS+uint16(k)] = v
	}
}

// LoadProgram copies a ROM image into memory at the start address. Images
// larger than the program space are rejected with ErrProgramTooLarge before
// any state is touched. The previous program space is zeroed first so that a
// shorter image never executes leftovers of a longer one.
func (c8 *Chip8) LoadProgram(program []byte) error {
	if len(program) > MEMORY_SIZE-int(START_ADDRESS) {
		return errors.Wrapf(ErrProgramTooLarge, "%d bytes exceeds %d byte program space",
			len(program), MEMORY_SIZE-int(START_ADDRESS))
	}

	for i := int(START_ADDRESS); i < MEMORY_SIZE; i++ {
		c8.memory[i] = 0
	}
	copy(c8.memory[START_ADDRESS:], program)

	return nil
}

/*
Step runs one cycle of the fetch/decode/execute loop:
  - Fetch the 2-byte big-endian instruction at the program counter
  - Increment the program counter by 2 before executing anything, so that
    jump and call instructions can overwrite it unconditionally
  - Decode and execute exactly one instruction's effect

Errors are local to the one invocation: the machine is left intact and the
host decides whether to halt, reset or keep stepping.
*/
func (c8 *Chip8) Step() (StepResult, error) {
	var res StepResult

	if int(c8.programCounter)+1 >= MEMORY_SIZE {
		return res, errors.Wrapf(ErrAddressOutOfRange, "instruction fetch at %#04x", c8.programCounter)
	}

	// Fetch
	c8.opcode = uint16(c8.memory[c8.programCounter])<<8 | uint16(c8.memory[c8.programCounter+1])

	// Increment the PC before we execute anything
	c8.programCounter += 2

	// Decode and Execute
	var err error

	switch c8.opcode & 0xF000 {
	case 0x0000:
		switch c8.opcode {
		case 0x00E0:
			c8.op00E0()
			res.Redraw = true
		case 0x00EE:
			err = c8.op00EE()
		default:
			// 0NNN (SYS) only ever ran on the original interpreter
			// hardware. Treat it as a decode error rather than a
			// silent no-op so ROM bugs surface.
			err = c8.invalidOpcode()
		}
	case 0x1000:
		c8.op1nnn()
	case 0x2000:
		err = c8.op2nnn()
	case 0x3000:
		c8.op3xkk()
	case 0x4000:
		c8.op4xkk()
	case 0x5000:
		if c8.opcode&0x000F == 0x0000 {
			c8.op5xy0()
		} else {
			err = c8.invalidOpcode()
		}
	case 0x6000:
		c8.op6xkk()
	case 0x7000:
		c8.op7xkk()
	case 0x8000:
		switch c8.opcode & 0x000F {
		case 0x0000:
			c8.op8xy0()
		case 0x0001:
			c8.op8xy1()
		case 0x0002:
			c8.op8xy2()
		case 0x0003:
			c8.op8xy3()
		case 0x0004:
			c8.op8xy4()
		case 0x0005:
			c8.op8xy5()
		case 0x0006:
			c8.op8xy6()
		case 0x0007:
			c8.op8xy7()
		case 0x000E:
			c8.op8xyE()
		default:
			err = c8.invalidOpcode()
		}
	case 0x9000:
		if c8.opcode&0x000F == 0x0000 {
			c8.op9xy0()
		} else {
			err = c8.invalidOpcode()
		}
	case 0xA000:
		c8.opAnnn()
	case 0xB000:
		c8.opBnnn()
	case 0xC000:
		c8.opCxkk()
	case 0xD000:
		err = c8.opDxyn()
		res.Redraw = err == nil
	case 0xE000:
		switch c8.opcode & 0x00FF {
		case 0x009E:
			c8.opEx9E()
		case 0x00A1:
			c8.opExA1()
		default:
			err = c8.invalidOpcode()
		}
	case 0xF000:
		switch c8.opcode & 0x00FF {
		case 0x0007:
			c8.opFx07()
		case 0x000A:
			res.WaitingForKey = c8.opFx0A()
		case 0x0015:
			c8.opFx15()
		case 0x0018:
			c8.opFx18()
		case 0x001E:
			c8.opFx1E()
		case 0x0029:
			c8.opFx29()
		case 0x0033:
			err = c8.opFx33()
		case 0x0055:
			err = c8.opFx55()
		case 0x0065:
			err = c8.opFx65()
		default:
			err = c8.invalidOpcode()
		}
	}

	return res, err
}

func (c8 *Chip8) invalidOpcode() error {
	return errors.Wrapf(ErrInvalidOpcode, "opcode %#04x at %#04x", c8.opcode, c8.programCounter-2)
}

// TickTimers decrements the delay and sound timers once each, floored at
// zero. Hosts call this at a fixed 60Hz, decoupled from however fast they
// call Step, so multiple instruction steps can be batched between ticks.
func (c8 *Chip8) TickTimers() {
	if c8.delayTimer > 0 {
		c8.delayTimer--
	}

	if c8.soundTimer > 0 {
		c8.soundTimer--
	}
}

// SetKey records a key transition from the host. Key indices outside 0x0-0xF
// are ignored.
func (c8 *Chip8) SetKey(key byte, pressed bool) {
	if key > 0xF {
		return
	}
	c8.keypad[key] = pressed
}

// Display returns a copy of the 64x32 framebuffer, row major, true meaning
// the pixel is lit.
func (c8 *Chip8) Display() [VIDEO_HEIGHT][VIDEO_WIDTH]bool {
	return c8.pixels
}

// DelayTimer returns the current delay timer value.
func (c8 *Chip8) DelayTimer() byte {
	return c8.delayTimer
}

// SoundTimer returns the current sound timer value. The host should beep
// while it is non-zero.
func (c8 *Chip8) SoundTimer() byte {
	return c8.soundTimer
}
