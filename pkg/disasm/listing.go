package disasm

import (
	"fmt"
	"strings"
)

// Line is one entry of a program listing.
type Line struct {
	Addr   uint16
	Opcode uint16
	Size   int // 2 for instructions, 1 for a trailing odd byte
	Text   string
}

func (l Line) String() string {
	if l.Size == 1 {
		return fmt.Sprintf("0x%03X: %02X    %s", l.Addr, l.Opcode, l.Text)
	}
	return fmt.Sprintf("0x%03X: %04X  %s", l.Addr, l.Opcode, l.Text)
}

// Listing disassembles program as if it were loaded at base. Every aligned
// pair of bytes is decoded big-endian; a trailing odd byte becomes DB.
func Listing(program []byte, base uint16) []Line {
	lines := make([]Line, 0, (len(program)+1)/2)
	for i := 0; i < len(program); i += 2 {
		addr := base + uint16(i)
		if i+1 >= len(program) {
			lines = append(lines, Line{
				Addr:   addr,
				Opcode: uint16(program[i]),
				Size:   1,
				Text:   fmt.Sprintf("DB 0x%02X", program[i]),
			})
			break
		}
		op := uint16(program[i])<<8 | uint16(program[i+1])
		lines = append(lines, Line{Addr: addr, Opcode: op, Size: 2, Text: Disassemble(op)})
	}
	return lines
}

// Targets returns the addresses referenced by jumps and calls in lines.
// Bnnn is excluded since its target depends on V0.
func Targets(lines []Line) map[uint16]bool {
	targets := make(map[uint16]bool)
	for _, l := range lines {
		if l.Size != 2 {
			continue
		}
		if (IsJump(l.Opcode) && l.Opcode&0xF000 == 0x1000) || IsCall(l.Opcode) {
			targets[l.Opcode&0x0FFF] = true
		}
	}
	return targets
}

// Format renders lines as a listing, prefixing jump and call targets with a
// label comment and separating blocks after unconditional control transfers.
func Format(lines []Line) string {
	targets := Targets(lines)
	var sb strings.Builder
	for _, l := range lines {
		if targets[l.Addr] {
			fmt.Fprintf(&sb, "; L%03X\n", l.Addr)
		}
		sb.WriteString(l.String())
		sb.WriteByte('\n')
		if l.Size == 2 && (IsJump(l.Opcode) || IsReturn(l.Opcode)) {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
