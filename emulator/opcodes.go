package emulator

import "github.com/pkg/errors"

/*
INSTRUCTION IMPLEMENTATIONS

One method per instruction, dispatched from Step. The opcode's highest nibble
selects the family; the remaining nibbles supply register indices (x, y), a
4-bit constant (n), an 8-bit immediate (kk) or a 12-bit address (nnn).

Instructions that set VF always assign it as their final step, after the
primary result, so the flag wins when VF itself is an operand.

See https://github.com/mattmikolay/chip-8/wiki/CHIP%E2%80%908-Instruction-Set
*/

/*
00E0: CLS
Clear the display.
*/
func (c8 *Chip8) op00E0() {
	c8.pixels = [VIDEO_HEIGHT][VIDEO_WIDTH]bool{}
}

/*
00EE: RET
Return from a subroutine. Pops the return address pushed by the matching CALL.
*/
func (c8 *Chip8) op00EE() error {
	if c8.stackPointer == 0 {
		return errors.Wrapf(ErrStackUnderflow, "return at %#04x with empty stack", c8.programCounter-2)
	}

	c8.stackPointer--
	c8.programCounter = c8.stack[c8.stackPointer]

	return nil
}

/*
1nnn: JP addr
Jump to location nnn. A jump doesn't remember its origin, so no stack
interaction required.
*/
func (c8 *Chip8) op1nnn() {
	c8.programCounter = c8.opcode & 0x0FFF
}

/*
2nnn: CALL addr
Call subroutine at nnn. The PC has already been advanced past the CALL, so
what we push is the address of the following instruction.
*/
func (c8 *Chip8) op2nnn() error {
	if c8.stackPointer == STACK_DEPTH {
		return errors.Wrapf(ErrStackOverflow, "call at %#04x beyond %d nested levels",
			c8.programCounter-2, STACK_DEPTH)
	}

	c8.stack[c8.stackPointer] = c8.programCounter
	c8.stackPointer++
	c8.programCounter = c8.opcode & 0x0FFF

	return nil
}

/*
3xkk: SE Vx, byte
Skip next instruction if Vx = kk. The PC was already incremented by 2 in Step,
so incrementing by 2 again skips the next instruction.
*/
func (c8 *Chip8) op3xkk() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	kk := byte(c8.opcode & 0x00FF)

	if c8.registers[vx] == kk {
		c8.programCounter += 2
	}
}

/*
4xkk: SNE Vx, byte
Skip next instruction if Vx != kk.
*/
func (c8 *Chip8) op4xkk() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	kk := byte(c8.opcode & 0x00FF)

	if c8.registers[vx] != kk {
		c8.programCounter += 2
	}
}

/*
5xy0: SE Vx, Vy
Skip next instruction if Vx = Vy.
*/
func (c8 *Chip8) op5xy0() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	if c8.registers[vx] == c8.registers[vy] {
		c8.programCounter += 2
	}
}

/*
6xkk: LD Vx, byte
Set Vx = kk.
*/
func (c8 *Chip8) op6xkk() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	kk := byte(c8.opcode & 0x00FF)

	c8.registers[vx] = kk
}

/*
7xkk: ADD Vx, byte
Set Vx = Vx + kk. Wraps on overflow and never touches VF, unlike 8xy4.
*/
func (c8 *Chip8) op7xkk() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	kk := byte(c8.opcode & 0x00FF)

	c8.registers[vx] += kk
}

/*
8xy0: LD Vx, Vy
Set Vx = Vy.
*/
func (c8 *Chip8) op8xy0() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	c8.registers[vx] = c8.registers[vy]
}

/*
8xy1: OR Vx, Vy
Set Vx = Vx OR Vy.
*/
func (c8 *Chip8) op8xy1() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	c8.registers[vx] |= c8.registers[vy]
}

/*
8xy2: AND Vx, Vy
Set Vx = Vx AND Vy.
*/
func (c8 *Chip8) op8xy2() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	c8.registers[vx] &= c8.registers[vy]
}

/*
8xy3: XOR Vx, Vy
Set Vx = Vx XOR Vy.
*/
func (c8 *Chip8) op8xy3() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	c8.registers[vx] ^= c8.registers[vy]
}

/*
8xy4: ADD Vx, Vy
Set Vx = Vx + Vy, set VF = carry. If the sum is greater than 255 VF is set to
1, otherwise 0, and only the lowest 8 bits are kept in Vx.
*/
func (c8 *Chip8) op8xy4() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	sum := uint16(c8.registers[vx]) + uint16(c8.registers[vy])

	var carry byte
	if sum > 0xFF {
		carry = 1
	}

	c8.registers[vx] = byte(sum)
	c8.registers[0xF] = carry
}

/*
8xy5: SUB Vx, Vy
Set Vx = Vx - Vy, set VF = NOT borrow. The flag polarity is inverted relative
to carry: VF is 1 when no borrow occurred, i.e. Vx >= Vy.
*/
func (c8 *Chip8) op8xy5() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	var noBorrow byte
	if c8.registers[vx] >= c8.registers[vy] {
		noBorrow = 1
	}

	c8.registers[vx] -= c8.registers[vy]
	c8.registers[0xF] = noBorrow
}

/*
8xy6: SHR Vx, Vy
Shift Vy right by one bit and store the result in Vx. VF receives the bit
shifted out. Some later interpreters shift Vx in place; the reference
architecture reads from Vy, and that is what we implement.
*/
func (c8 *Chip8) op8xy6() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	bit := c8.registers[vy] & 0x1

	c8.registers[vx] = c8.registers[vy] >> 1
	c8.registers[0xF] = bit
}

/*
8xy7: SUBN Vx, Vy
Set Vx = Vy - Vx, set VF = NOT borrow (1 when Vy >= Vx).
*/
func (c8 *Chip8) op8xy7() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	var noBorrow byte
	if c8.registers[vy] >= c8.registers[vx] {
		noBorrow = 1
	}

	c8.registers[vx] = c8.registers[vy] - c8.registers[vx]
	c8.registers[0xF] = noBorrow
}

/*
8xyE: SHL Vx, Vy
Shift Vy left by one bit and store the result in Vx. VF receives the bit
shifted out. See op8xy6 for the Vy-source convention.
*/
func (c8 *Chip8) op8xyE() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	bit := (c8.registers[vy] & 0x80) >> 7

	c8.registers[vx] = c8.registers[vy] << 1
	c8.registers[0xF] = bit
}

/*
9xy0: SNE Vx, Vy
Skip next instruction if Vx != Vy.
*/
func (c8 *Chip8) op9xy0() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)

	if c8.registers[vx] != c8.registers[vy] {
		c8.programCounter += 2
	}
}

/*
Annn: LD I, addr
Set I = nnn.
*/
func (c8 *Chip8) opAnnn() {
	c8.indexRegister = c8.opcode & 0x0FFF
}

/*
Bnnn: JP V0, addr
Jump to location nnn + V0. A target beyond the address space is caught by the
fetch bounds check on the next Step.
*/
func (c8 *Chip8) opBnnn() {
	c8.programCounter = (c8.opcode & 0x0FFF) + uint16(c8.registers[0])
}

/*
Cxkk: RND Vx, byte
Set Vx = random byte AND kk.
*/
func (c8 *Chip8) opCxkk() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	kk := byte(c8.opcode & 0x00FF)

	c8.registers[vx] = byte(c8.rng.UintN(256)) & kk
}

/*
Dxyn: DRW Vx, Vy, nibble
Display the n-byte sprite starting at memory location I at (Vx, Vy), set
VF = collision.

Each sprite byte is one row of 8 pixels, most significant bit leftmost. Every
set sprite bit is XORed against the framebuffer, with pixel coordinates
wrapping on both axes. VF is set to 1 if any pixel transitioned from on to
off, otherwise 0.
*/
func (c8 *Chip8) opDxyn() error {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	vy := byte((c8.opcode & 0x00F0) >> 4)
	height := uint16(c8.opcode & 0x000F)

	if uint(c8.indexRegister)+uint(height) > MEMORY_SIZE {
		return errors.Wrapf(ErrAddressOutOfRange, "sprite read of %d bytes at I=%#04x", height, c8.indexRegister)
	}

	x := uint(c8.registers[vx])
	y := uint(c8.registers[vy])

	var collision byte

	for row := uint16(0); row < height; row++ {
		sprite := c8.memory[c8.indexRegister+row]
		py := (y + uint(row)) % VIDEO_HEIGHT

		for col := uint(0); col < 8; col++ {
			if sprite&(0x80>>col) == 0 {
				continue
			}

			px := (x + col) % VIDEO_WIDTH
			if c8.pixels[py][px] {
				collision = 1
			}
			c8.pixels[py][px] = !c8.pixels[py][px]
		}
	}

	c8.registers[0xF] = collision

	return nil
}

/*
Ex9E: SKP Vx
Skip next instruction if the key with the value of Vx is pressed. Only the low
nibble of Vx names a key.
*/
func (c8 *Chip8) opEx9E() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	key := c8.registers[vx] & 0x0F

	if c8.keypad[key] {
		c8.programCounter += 2
	}
}

/*
ExA1: SKNP Vx
Skip next instruction if the key with the value of Vx is not pressed.
*/
func (c8 *Chip8) opExA1() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	key := c8.registers[vx] & 0x0F

	if !c8.keypad[key] {
		c8.programCounter += 2
	}
}

/*
Fx07: LD Vx, DT
Set Vx = delay timer value.
*/
func (c8 *Chip8) opFx07() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	c8.registers[vx] = c8.delayTimer
}

/*
Fx0A: LD Vx, K
Wait for a key press, store the value of the key in Vx.

Waiting means rewinding the PC by 2 so the next Step re-executes this same
instruction. The emulated program makes no forward progress until the host
reports a pressed key; the calling thread is never blocked. Returns true
while still waiting.
*/
func (c8 *Chip8) opFx0A() bool {
	vx := byte((c8.opcode & 0x0F00) >> 8)

	for k, pressed := range c8.keypad {
		if pressed {
			c8.registers[vx] = byte(k)
			return false
		}
	}

	c8.programCounter -= 2

	return true
}

/*
Fx15: LD DT, Vx
Set delay timer = Vx.
*/
func (c8 *Chip8) opFx15() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	c8.delayTimer = c8.registers[vx]
}

/*
Fx18: LD ST, Vx
Set sound timer = Vx.
*/
func (c8 *Chip8) opFx18() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	c8.soundTimer = c8.registers[vx]
}

/*
Fx1E: ADD I, Vx
Set I = I + Vx. I is 16-bit so the sum itself cannot fault; an I beyond the
address space only faults when an instruction uses it to touch memory.
*/
func (c8 *Chip8) opFx1E() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	c8.indexRegister += uint16(c8.registers[vx])
}

/*
Fx29: LD F, Vx
Set I = location of the font sprite for digit Vx. Glyphs are five bytes each
starting at the fontset base address.
*/
func (c8 *Chip8) opFx29() {
	vx := byte((c8.opcode & 0x0F00) >> 8)
	digit := uint16(c8.registers[vx])

	c8.indexRegister = FONTSET_START_ADDRESS + 5*digit
}

/*
Fx33: LD B, Vx
Store the BCD representation of Vx in memory locations I, I+1 and I+2:
hundreds digit at I, tens at I+1, units at I+2.
*/
func (c8 *Chip8) opFx33() error {
	if uint(c8.indexRegister)+2 >= MEMORY_SIZE {
		return errors.Wrapf(ErrAddressOutOfRange, "BCD store at I=%#04x", c8.indexRegister)
	}

	vx := byte((c8.opcode & 0x0F00) >> 8)
	value := c8.registers[vx]

	c8.memory[c8.indexRegister] = value / 100
	c8.memory[c8.indexRegister+1] = (value / 10) % 10
	c8.memory[c8.indexRegister+2] = value % 10

	return nil
}

/*
Fx55: LD [I], Vx
Store registers V0 through Vx inclusive in memory starting at location I.
*/
func (c8 *Chip8) opFx55() error {
	vx := byte((c8.opcode & 0x0F00) >> 8)

	if uint(c8.indexRegister)+uint(vx) >= MEMORY_SIZE {
		return errors.Wrapf(ErrAddressOutOfRange, "register dump of V0-V%X at I=%#04x", vx, c8.indexRegister)
	}

	for i := byte(0); i <= vx; i++ {
		c8.memory[c8.indexRegister+uint16(i)] = c8.registers[i]
	}

	return nil
}

/*
Fx65: LD Vx, [I]
Read registers V0 through Vx inclusive from memory starting at location I.
*/
func (c8 *Chip8) opFx65() error {
	vx := byte((c8.opcode & 0x0F00) >> 8)

	if uint(c8.indexRegister)+uint(vx) >= MEMORY_SIZE {
		return errors.Wrapf(ErrAddressOutOfRange, "register load of V0-V%X at I=%#04x", vx, c8.indexRegister)
	}

	for i := byte(0); i <= vx; i++ {
		c8.registers[i] = c8.memory[c8.indexRegister+uint16(i)]
	}

	return nil
}
