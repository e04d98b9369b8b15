package emulator

import "github.com/pkg/errors"

// Error conditions reported by LoadProgram and Step. Every error returned by
// this package wraps one of these sentinels, so hosts can classify with
// errors.Is() while the wrapped message carries the offending opcode/address.
var (
	// ErrProgramTooLarge means the program image does not fit between the
	// load address (0x200) and the end of memory. The machine is unchanged.
	ErrProgramTooLarge = errors.New("program too large")

	// ErrStackOverflow means a CALL executed with 16 return addresses
	// already on the stack. Terminal for the emulated program.
	ErrStackOverflow = errors.New("stack overflow")

	// ErrStackUnderflow means a RET executed with an empty stack.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrInvalidOpcode means the fetched instruction matches no known
	// encoding.
	ErrInvalidOpcode = errors.New("invalid opcode")

	// ErrAddressOutOfRange means an instruction fetch or a memory-block
	// instruction would touch memory outside 0x000-0xFFF. Raw memory
	// addressing never wraps; only sprite coordinates do.
	ErrAddressOutOfRange = errors.New("address out of range")
)
