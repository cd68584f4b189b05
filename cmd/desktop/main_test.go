package main

import (
	"errors"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus/hooks/test"

	"gochip8/pkg/asm"
	"gochip8/pkg/cpu"
)

func newTestGame(t *testing.T, src string, speed int) *Game {
	t.Helper()
	program, _, err := asm.Assemble(src)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	logger, _ := test.NewNullLogger()
	g, err := newGame(program, speed, 10, logger, false)
	if err != nil {
		t.Fatalf("newGame failed: %v", err)
	}
	return g
}

func noKeys(ebiten.Key) bool { return false }

func TestKeymapIsComplete(t *testing.T) {
	seen := make(map[ebiten.Key]bool)
	for k, key := range keymap {
		if seen[key] {
			t.Errorf("key %X: %v is mapped twice", k, key)
		}
		seen[key] = true
	}
	if keymap[0x0] != ebiten.KeyX || keymap[0xF] != ebiten.KeyV {
		t.Errorf("unexpected layout: 0->%v F->%v", keymap[0x0], keymap[0xF])
	}
}

func TestRunFrameStepsAndTicks(t *testing.T) {
	g := newTestGame(t, "LD V0, 10\nLD DT, V0\nloop: ADD V1, 1\nJP loop", 6)

	g.runFrame(noKeys)

	if g.vm.DelayTimer != 9 {
		t.Errorf("DT: expected one tick per frame (9), got %d", g.vm.DelayTimer)
	}
	// 2 setup instructions, then 2 loop iterations
	if g.vm.V[1] != 2 {
		t.Errorf("V1: expected 2, got %d", g.vm.V[1])
	}
}

func TestRunFrameDeliversKeys(t *testing.T) {
	g := newTestGame(t, "LD V2, K\nhalt: JP halt", 10)

	g.runFrame(noKeys)
	if !g.vm.WaitingForKey || g.vm.PC != cpu.ProgramStart {
		t.Fatalf("expected to wait at 0x200, got waiting=%t pc=0x%03X", g.vm.WaitingForKey, g.vm.PC)
	}

	g.runFrame(func(k ebiten.Key) bool { return k == ebiten.KeyE })
	if g.vm.WaitingForKey {
		t.Fatalf("expected the key press to resume execution")
	}
	if g.vm.V[2] != 0x6 {
		t.Errorf("V2: expected key 6, got %d", g.vm.V[2])
	}
	if !g.vm.Keypad.IsPressed(0x6) {
		t.Errorf("keypad: expected key 6 to be latched")
	}
}

func TestRunFrameHaltsOnFault(t *testing.T) {
	g := newTestGame(t, "RET", 10)

	g.runFrame(noKeys)
	if !errors.Is(g.fault, cpu.ErrStackUnderflow) {
		t.Fatalf("expected a stack underflow fault, got %v", g.fault)
	}

	pc := g.vm.PC
	g.runFrame(noKeys)
	if g.vm.PC != pc {
		t.Errorf("expected no execution after a fault")
	}

	g.reset()
	if g.fault != nil || g.vm.PC != cpu.ProgramStart {
		t.Errorf("reset: expected a clean restart, got fault=%v pc=0x%03X", g.fault, g.vm.PC)
	}
}

func TestDirtyTracksChecksum(t *testing.T) {
	g := newTestGame(t, "LD F, V0\nDRW V0, V0, 5\nhalt: JP halt", 1)

	if !g.dirty() {
		t.Errorf("expected the first frame to upload")
	}
	if g.dirty() {
		t.Errorf("expected no upload for an unchanged display")
	}

	g.runFrame(noKeys)
	g.runFrame(noKeys)
	if !g.dirty() {
		t.Errorf("expected an upload after drawing")
	}
}
