// Package disasm renders opcodes as assembly mnemonics.
//
// The mnemonic forms are the ones accepted by pkg/asm, so a listing can be fed
// back through the assembler.
package disasm

import "fmt"

func reg(n uint16) string {
	return fmt.Sprintf("V%X", n)
}

// Disassemble returns the mnemonic form of a single opcode. Opcodes outside
// the instruction set are rendered as a DW data word.
func Disassemble(op uint16) string {
	x := (op & 0x0F00) >> 8
	y := (op & 0x00F0) >> 4
	n := op & 0x000F
	kk := op & 0x00FF
	nnn := op & 0x0FFF

	switch op & 0xF000 {
	case 0x0000:
		switch op {
		case 0x00E0:
			return "CLS"
		case 0x00EE:
			return "RET"
		}
	case 0x1000:
		return fmt.Sprintf("JP 0x%03X", nnn)
	case 0x2000:
		return fmt.Sprintf("CALL 0x%03X", nnn)
	case 0x3000:
		return fmt.Sprintf("SE %s, 0x%02X", reg(x), kk)
	case 0x4000:
		return fmt.Sprintf("SNE %s, 0x%02X", reg(x), kk)
	case 0x5000:
		if n == 0 {
			return fmt.Sprintf("SE %s, %s", reg(x), reg(y))
		}
	case 0x6000:
		return fmt.Sprintf("LD %s, 0x%02X", reg(x), kk)
	case 0x7000:
		return fmt.Sprintf("ADD %s, 0x%02X", reg(x), kk)
	case 0x8000:
		if name, ok := aluNames[n]; ok {
			return fmt.Sprintf("%s %s, %s", name, reg(x), reg(y))
		}
	case 0x9000:
		if n == 0 {
			return fmt.Sprintf("SNE %s, %s", reg(x), reg(y))
		}
	case 0xA000:
		return fmt.Sprintf("LD I, 0x%03X", nnn)
	case 0xB000:
		return fmt.Sprintf("JP V0, 0x%03X", nnn)
	case 0xC000:
		return fmt.Sprintf("RND %s, 0x%02X", reg(x), kk)
	case 0xD000:
		return fmt.Sprintf("DRW %s, %s, 0x%X", reg(x), reg(y), n)
	case 0xE000:
		switch kk {
		case 0x9E:
			return "SKP " + reg(x)
		case 0xA1:
			return "SKNP " + reg(x)
		}
	case 0xF000:
		if format, ok := fFormats[kk]; ok {
			return fmt.Sprintf(format, reg(x))
		}
	}
	return fmt.Sprintf("DW 0x%04X", op)
}

var aluNames = map[uint16]string{
	0x0: "LD",
	0x1: "OR",
	0x2: "AND",
	0x3: "XOR",
	0x4: "ADD",
	0x5: "SUB",
	0x6: "SHR",
	0x7: "SUBN",
	0xE: "SHL",
}

var fFormats = map[uint16]string{
	0x07: "LD %s, DT",
	0x0A: "LD %s, K",
	0x15: "LD DT, %s",
	0x18: "LD ST, %s",
	0x1E: "ADD I, %s",
	0x29: "LD F, %s",
	0x33: "LD B, %s",
	0x55: "LD [I], %s",
	0x65: "LD %s, [I]",
}

// IsJump reports whether op unconditionally transfers control (1nnn, Bnnn).
func IsJump(op uint16) bool {
	return op&0xF000 == 0x1000 || op&0xF000 == 0xB000
}

// IsCall reports whether op is a subroutine call (2nnn).
func IsCall(op uint16) bool {
	return op&0xF000 == 0x2000
}

// IsReturn reports whether op is a subroutine return (00EE).
func IsReturn(op uint16) bool {
	return op == 0x00EE
}

// IsSkip reports whether op conditionally skips the next instruction.
func IsSkip(op uint16) bool {
	switch op & 0xF000 {
	case 0x3000, 0x4000:
		return true
	case 0x5000, 0x9000:
		return op&0x000F == 0
	case 0xE000:
		return op&0x00FF == 0x9E || op&0x00FF == 0xA1
	}
	return false
}
