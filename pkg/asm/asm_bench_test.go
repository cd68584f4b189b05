package asm

import (
	"strings"
	"testing"

	"gochip8/pkg/disasm"
)

// smallProgram is a counter loop.
const smallProgram = `
    LD V0, 10
    LD V1, 0
loop:
    ADD V1, 1
    ADD V0, 0xFF
    SE V0, 0
    JP loop
halt:
    JP halt
`

// mediumProgram draws the hex digits of a BCD-converted counter.
const mediumProgram = `
    CLS
    LD V5, 0
main:
    CALL show
    ADD V5, 1
    LD V0, 30
    LD DT, V0
wait:
    LD V0, DT
    SE V0, 0
    JP wait
    CALL show       ; erase
    JP main

show:
    LD I, digits
    LD B, V5
    LD V2, [I]
    LD V3, 0
    LD V4, 0
    LD F, V0
    DRW V3, V4, 5
    ADD V3, 5
    LD F, V1
    DRW V3, V4, 5
    ADD V3, 5
    LD F, V2
    DRW V3, V4, 5
    RET

digits:
    .BYTE 0, 0, 0
`

// largeProgram is a listing of every opcode in a few instruction families.
var largeProgram = func() string {
	var sb strings.Builder
	for op := 0x6000; op < 0x9000; op += 7 {
		sb.WriteString(disasm.Disassemble(uint16(op)))
		sb.WriteByte('\n')
	}
	return sb.String()
}()

func BenchmarkAssemble_Small(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, err := Assemble(smallProgram)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Medium(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, err := Assemble(mediumProgram)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Large(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, err := Assemble(largeProgram)
		if err != nil {
			b.Fatal(err)
		}
	}
}
