// Package asm is a two-pass assembler for the interpreter's instruction set.
//
// Programs are assembled for loading at cpu.ProgramStart; labels and .ORG
// take absolute addresses. Instructions are emitted big-endian.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gochip8/pkg/cpu"
)

// mnemonics lists every instruction name accepted by the encoder.
var mnemonics = map[string]bool{
	"CLS": true, "RET": true, "JP": true, "CALL": true,
	"SE": true, "SNE": true, "LD": true, "ADD": true,
	"OR": true, "AND": true, "XOR": true, "SUB": true,
	"SHR": true, "SUBN": true, "SHL": true, "RND": true,
	"DRW": true, "SKP": true, "SKNP": true,
}

var aluOps = map[string]uint16{
	"OR":   0x1,
	"AND":  0x2,
	"XOR":  0x3,
	"SUB":  0x5,
	"SHR":  0x6,
	"SUBN": 0x7,
	"SHL":  0xE,
}

// special operands of LD and ADD
var ldToReg = map[string]uint16{
	"DT":  0xF007,
	"K":   0xF00A,
	"[I]": 0xF065,
}

var ldFromReg = map[string]uint16{
	"DT":  0xF015,
	"ST":  0xF018,
	"F":   0xF029,
	"B":   0xF033,
	"[I]": 0xF055,
}

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble returns the program image and a map from address to source line.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	address := uint32(cpu.ProgramStart)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		// Labels on an .ORG line name the new origin.
		if p.mnemonic == ".ORG" {
			target, err := parseOrigin(p, address)
			if err != nil {
				return err
			}
			address = target
		}

		for _, lbl := range p.labels {
			if address >= cpu.MemorySize {
				return fmt.Errorf("label '%s' on line %d points past addressable memory", lbl, lineNo)
			}
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		if p.mnemonic == "" || p.mnemonic == ".ORG" {
			continue
		}

		length, ok := lineLength(p)
		if !ok {
			return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
		}
		if address+length > cpu.MemorySize {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		address := uint32(cpu.ProgramStart + len(program))

		if p.mnemonic == ".ORG" {
			target, err := parseOrigin(p, address)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, make([]byte, target-address)...)
			continue
		}

		sourceMap[uint16(address)] = lineNo

		switch p.mnemonic {
		case ".BYTE", "DB":
			if len(p.operands) == 0 {
				return nil, nil, fmt.Errorf("%s expects at least one operand on line %d", p.mnemonic, lineNo)
			}
			for _, op := range p.operands {
				val, err := a.parseValue(op, 0xFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(val))
			}
			continue

		case ".WORD", "DW":
			if len(p.operands) != 1 {
				return nil, nil, fmt.Errorf("%s expects exactly one operand on line %d", p.mnemonic, lineNo)
			}
			val, err := a.parseValue(p.operands[0], 0xFFFF, lineNo)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, byte(val>>8), byte(val&0xFF))
			continue
		}

		instr, err := a.encode(p)
		if err != nil {
			return nil, nil, err
		}
		program = append(program, byte(instr>>8), byte(instr&0xFF))
	}

	return program, sourceMap, nil
}

// encode assembles a single instruction line into its opcode.
func (a *Assembler) encode(p parsedLine) (uint16, error) {
	ops := p.operands
	lineNo := p.lineNo

	expect := func(n int) error {
		if len(ops) != n {
			return fmt.Errorf("%s expects %d operands on line %d", p.mnemonic, n, lineNo)
		}
		return nil
	}

	switch p.mnemonic {
	case "CLS", "RET":
		if err := expect(0); err != nil {
			return 0, err
		}
		if p.mnemonic == "CLS" {
			return 0x00E0, nil
		}
		return 0x00EE, nil

	case "JP":
		if len(ops) == 2 {
			if r, ok := parseRegister(ops[0]); !ok || r != 0 {
				return 0, fmt.Errorf("JP with two operands requires V0 on line %d", lineNo)
			}
			addr, err := a.parseValue(ops[1], 0xFFF, lineNo)
			return 0xB000 | addr, err
		}
		if err := expect(1); err != nil {
			return 0, err
		}
		addr, err := a.parseValue(ops[0], 0xFFF, lineNo)
		return 0x1000 | addr, err

	case "CALL":
		if err := expect(1); err != nil {
			return 0, err
		}
		addr, err := a.parseValue(ops[0], 0xFFF, lineNo)
		return 0x2000 | addr, err

	case "SE", "SNE":
		if err := expect(2); err != nil {
			return 0, err
		}
		x, err := requireRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		if y, ok := parseRegister(ops[1]); ok {
			if p.mnemonic == "SE" {
				return 0x5000 | x<<8 | y<<4, nil
			}
			return 0x9000 | x<<8 | y<<4, nil
		}
		kk, err := a.parseValue(ops[1], 0xFF, lineNo)
		if p.mnemonic == "SE" {
			return 0x3000 | x<<8 | kk, err
		}
		return 0x4000 | x<<8 | kk, err

	case "LD":
		if err := expect(2); err != nil {
			return 0, err
		}
		return a.encodeLD(ops[0], ops[1], lineNo)

	case "ADD":
		if err := expect(2); err != nil {
			return 0, err
		}
		if strings.ToUpper(ops[0]) == "I" {
			x, err := requireRegister(ops[1], lineNo)
			return 0xF01E | x<<8, err
		}
		x, err := requireRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		if y, ok := parseRegister(ops[1]); ok {
			return 0x8004 | x<<8 | y<<4, nil
		}
		kk, err := a.parseValue(ops[1], 0xFF, lineNo)
		return 0x7000 | x<<8 | kk, err

	case "OR", "AND", "XOR", "SUB", "SHR", "SUBN", "SHL":
		// SHR and SHL may omit Vy.
		if len(ops) == 1 && (p.mnemonic == "SHR" || p.mnemonic == "SHL") {
			ops = append(ops, "V0")
		}
		if len(ops) != 2 {
			return 0, fmt.Errorf("%s expects 2 operands on line %d", p.mnemonic, lineNo)
		}
		x, err := requireRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		y, err := requireRegister(ops[1], lineNo)
		if err != nil {
			return 0, err
		}
		return 0x8000 | x<<8 | y<<4 | aluOps[p.mnemonic], nil

	case "RND":
		if err := expect(2); err != nil {
			return 0, err
		}
		x, err := requireRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		kk, err := a.parseValue(ops[1], 0xFF, lineNo)
		return 0xC000 | x<<8 | kk, err

	case "DRW":
		if err := expect(3); err != nil {
			return 0, err
		}
		x, err := requireRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		y, err := requireRegister(ops[1], lineNo)
		if err != nil {
			return 0, err
		}
		n, err := a.parseValue(ops[2], 0xF, lineNo)
		return 0xD000 | x<<8 | y<<4 | n, err

	case "SKP", "SKNP":
		if err := expect(1); err != nil {
			return 0, err
		}
		x, err := requireRegister(ops[0], lineNo)
		if p.mnemonic == "SKP" {
			return 0xE09E | x<<8, err
		}
		return 0xE0A1 | x<<8, err
	}

	return 0, fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
}

func (a *Assembler) encodeLD(dst, src string, lineNo int) (uint16, error) {
	udst, usrc := strings.ToUpper(dst), strings.ToUpper(src)

	if x, ok := parseRegister(dst); ok {
		if y, ok := parseRegister(src); ok {
			return 0x8000 | x<<8 | y<<4, nil
		}
		if op, ok := ldToReg[usrc]; ok {
			return op | x<<8, nil
		}
		kk, err := a.parseValue(src, 0xFF, lineNo)
		return 0x6000 | x<<8 | kk, err
	}

	if udst == "I" {
		addr, err := a.parseValue(src, 0xFFF, lineNo)
		return 0xA000 | addr, err
	}

	if op, ok := ldFromReg[udst]; ok {
		x, err := requireRegister(src, lineNo)
		return op | x<<8, err
	}

	return 0, fmt.Errorf("invalid LD destination '%s' on line %d", dst, lineNo)
}

func parseOrigin(p parsedLine, address uint32) (uint32, error) {
	if len(p.operands) != 1 {
		return 0, fmt.Errorf(".ORG expects exactly one operand on line %d", p.lineNo)
	}
	target, err := strconv.ParseUint(p.operands[0], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid .ORG value on line %d: %s", p.lineNo, p.operands[0])
	}
	if target > cpu.MemorySize {
		return 0, fmt.Errorf(".ORG out of range on line %d: %s", p.lineNo, p.operands[0])
	}
	if uint32(target) < address {
		return 0, fmt.Errorf("cannot move origin backward on line %d", p.lineNo)
	}
	return uint32(target), nil
}

// lineLength returns the number of bytes a parsed line emits.
func lineLength(p parsedLine) (uint32, bool) {
	switch p.mnemonic {
	case ".BYTE", "DB":
		return uint32(len(p.operands)), true
	case ".WORD", "DW":
		return 2, true
	}
	if mnemonics[p.mnemonic] {
		return 2, true
	}
	return 0, false
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

// parseRegister accepts V0-VF in either case.
func parseRegister(token string) (uint16, bool) {
	if len(token) != 2 || (token[0] != 'V' && token[0] != 'v') {
		return 0, false
	}
	n, err := strconv.ParseUint(token[1:], 16, 8)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

func requireRegister(token string, lineNo int) (uint16, error) {
	if r, ok := parseRegister(token); ok {
		return r, nil
	}
	return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
}

// parseValue resolves a numeric literal or label and checks it against max.
func (a *Assembler) parseValue(token string, max uint16, lineNo int) (uint16, error) {
	if value, err := strconv.ParseUint(token, 0, 32); err == nil {
		if value > uint64(max) {
			return 0, fmt.Errorf("value out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	if addr, ok := a.labels[normalizeLabel(token)]; ok {
		if addr > max {
			return 0, fmt.Errorf("label '%s' out of range on line %d", token, lineNo)
		}
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid value '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
