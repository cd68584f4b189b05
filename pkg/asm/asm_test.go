package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochip8/pkg/disasm"
)

func words(ws ...uint16) []byte {
	out := make([]byte, 0, len(ws)*2)
	for _, w := range ws {
		out = append(out, byte(w>>8), byte(w))
	}
	return out
}

func TestHelperFunctions(t *testing.T) {
	assert.True(t, isIdentifier("loop"))
	assert.True(t, isIdentifier("_draw2"))
	assert.False(t, isIdentifier("2loop"))
	assert.False(t, isIdentifier("a-b"))
	assert.False(t, isIdentifier(""))

	assert.Equal(t, "LD V1, 2 ", stripComments("LD V1, 2 ; set"))
	assert.Equal(t, "CLS ", stripComments("CLS // clear"))
	assert.Equal(t, "", stripComments("; only a comment"))

	r, ok := parseRegister("vA")
	assert.True(t, ok)
	assert.Equal(t, uint16(0xA), r)
	_, ok = parseRegister("V10")
	assert.False(t, ok)
	_, ok = parseRegister("VG")
	assert.False(t, ok)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    parsedLine
		wantErr bool
	}{
		{"LD V0, 5", parsedLine{lineNo: 1, mnemonic: "LD", operands: []string{"V0", "5"}}, false},
		{"  ld v0, v1  ; copy", parsedLine{lineNo: 1, mnemonic: "LD", operands: []string{"v0", "v1"}}, false},
		{"start: CLS", parsedLine{lineNo: 1, labels: []string{"start"}, mnemonic: "CLS"}, false},
		{"a: b: RET", parsedLine{lineNo: 1, labels: []string{"a", "b"}, mnemonic: "RET"}, false},
		{"LD [I], V3", parsedLine{lineNo: 1, mnemonic: "LD", operands: []string{"[I]", "V3"}}, false},
		{".BYTE 1, 2, 3", parsedLine{lineNo: 1, mnemonic: ".BYTE", operands: []string{"1", "2", "3"}}, false},
		{"1bad: CLS", parsedLine{}, true},
	}

	for _, tc := range tests {
		got, err := parseLine(tc.line, 1)
		if tc.wantErr {
			assert.Error(t, err, tc.line)
			continue
		}
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want.mnemonic, got.mnemonic, tc.line)
		assert.Equal(t, tc.want.labels, got.labels, tc.line)
		assert.Equal(t, tc.want.operands, got.operands, tc.line)
	}
}

func TestAssembleInstructions(t *testing.T) {
	tests := []struct {
		src  string
		want uint16
	}{
		{"CLS", 0x00E0},
		{"RET", 0x00EE},
		{"JP 0x345", 0x1345},
		{"CALL 0x2F0", 0x22F0},
		{"SE V3, 0x42", 0x3342},
		{"SNE V3, 66", 0x4342},
		{"SE V1, V2", 0x5120},
		{"LD VA, 0x15", 0x6A15},
		{"ADD V4, 0xFF", 0x74FF},
		{"LD V1, V2", 0x8120},
		{"OR V1, V2", 0x8121},
		{"AND V1, V2", 0x8122},
		{"XOR V1, V2", 0x8123},
		{"ADD V1, V2", 0x8124},
		{"SUB V1, V2", 0x8125},
		{"SHR V1, V2", 0x8126},
		{"SHR V1", 0x8106},
		{"SUBN V1, V2", 0x8127},
		{"SHL V1, V2", 0x812E},
		{"SNE V1, V2", 0x9120},
		{"LD I, 0x300", 0xA300},
		{"JP V0, 0x300", 0xB300},
		{"RND V5, 0x0F", 0xC50F},
		{"DRW V1, V2, 0xF", 0xD12F},
		{"SKP V7", 0xE79E},
		{"SKNP V7", 0xE7A1},
		{"LD V2, DT", 0xF207},
		{"LD V2, K", 0xF20A},
		{"LD DT, V2", 0xF215},
		{"LD ST, V2", 0xF218},
		{"ADD I, V2", 0xF21E},
		{"LD F, V2", 0xF229},
		{"LD B, V2", 0xF233},
		{"LD [I], V2", 0xF255},
		{"LD V2, [I]", 0xF265},
		{"DW 0x0123", 0x0123},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			got, _, err := Assemble(tc.src)
			require.NoError(t, err)
			assert.Equal(t, words(tc.want), got)
		})
	}
}

func TestAssembleLabels(t *testing.T) {
	src := `
		LD V0, 0        ; counter
	loop:
		ADD V0, 1
		SE V0, 10
		JP loop
	done: JP done
	`
	got, _, err := Assemble(src)
	require.NoError(t, err)
	assert.Equal(t, words(0x6000, 0x7001, 0x300A, 0x1202, 0x1208), got)
}

func TestAssembleForwardReference(t *testing.T) {
	src := `
		CALL sub
		LD I, sprite
		JP 0x200
	sub:
		RET
	sprite:
		.BYTE 0xF0, 0x90, 0xF0
	`
	got, _, err := Assemble(src)
	require.NoError(t, err)
	assert.Equal(t, append(words(0x2206, 0xA208, 0x1200, 0x00EE), 0xF0, 0x90, 0xF0), got)
}

func TestAssembleDirectives(t *testing.T) {
	src := `
		CLS
		.ORG 0x206
		.WORD 0xBEEF
		DB 7
	`
	got, _, err := Assemble(src)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xE0, 0, 0, 0, 0, 0xBE, 0xEF, 7}, got)
}

func TestLabelOnOrgLine(t *testing.T) {
	src := `
		JP start
	start: .ORG 0x206
		JP start
	`
	got, _, err := Assemble(src)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x06, 0, 0, 0, 0, 0x12, 0x06}, got)

	_, _, err = Assemble("end: .ORG 0x1000")
	assert.ErrorContains(t, err, "label 'end' on line 1 points past addressable memory")
}

func TestAssembleSourceMap(t *testing.T) {
	src := `; header
LD V0, 1

loop:
ADD V0, 1
.ORG 0x210
JP loop
.BYTE 1, 2`

	_, sourceMap, err := Assemble(src)
	require.NoError(t, err)

	assert.Equal(t, map[uint16]int{
		0x200: 2,
		0x202: 5,
		0x210: 7,
		0x212: 8,
	}, sourceMap)
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"unknown mnemonic", "NOP", "unknown instruction on line 1"},
		{"undefined label", "CLS\nJP nowhere", "undefined label 'nowhere' on line 2"},
		{"duplicate label", "a: CLS\na: CLS", "duplicate label 'a' on line 2"},
		{"byte out of range", "LD V0, 0x100", "value out of range on line 1"},
		{"address out of range", "JP 0x1000", "value out of range on line 1"},
		{"nibble out of range", "DRW V0, V1, 16", "value out of range on line 1"},
		{"bad register", "SKP VX", "invalid register 'VX' on line 1"},
		{"operand count", "CLS V0", "CLS expects 0 operands on line 1"},
		{"backward origin", "CLS\n.ORG 0x200", "cannot move origin backward on line 2"},
		{"jp offset needs v0", "JP V1, 0x300", "requires V0 on line 1"},
		{"bad LD destination", "LD 5, V0", "invalid LD destination '5' on line 1"},
		{"too large", ".ORG 0xFFF\nCLS", "program too large near line 2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Assemble(tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

// Every opcode disassembles to text that assembles back to the same opcode.
func TestDisassemblyRoundTrip(t *testing.T) {
	for op := 0; op <= 0xFFFF; op++ {
		text := disasm.Disassemble(uint16(op))
		got, _, err := Assemble(text)
		if !assert.NoError(t, err, text) {
			return
		}
		if !assert.Equal(t, words(uint16(op)), got, text) {
			return
		}
	}
}

func TestListingRoundTrip(t *testing.T) {
	program := append(words(0x00E0, 0x6A02, 0xA20A, 0xDA15, 0x1206), 0xAB)

	var src string
	for _, line := range disasm.Listing(program, 0x200) {
		src += line.Text + "\n"
	}

	got, _, err := Assemble(src)
	require.NoError(t, err)
	assert.Equal(t, program, got)
}
