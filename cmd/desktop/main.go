package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"gochip8/pkg/cpu"
	"gochip8/pkg/display"
	"gochip8/pkg/keypad"
	"gochip8/pkg/rom"
	"gochip8/pkg/utils"
)

// keymap places the hex keypad on the left block of a QWERTY keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
var keymap = [keypad.NumKeys]ebiten.Key{
	0x1: ebiten.Key1, 0x2: ebiten.Key2, 0x3: ebiten.Key3, 0xC: ebiten.Key4,
	0x4: ebiten.KeyQ, 0x5: ebiten.KeyW, 0x6: ebiten.KeyE, 0xD: ebiten.KeyR,
	0x7: ebiten.KeyA, 0x8: ebiten.KeyS, 0x9: ebiten.KeyD, 0xE: ebiten.KeyF,
	0xA: ebiten.KeyZ, 0x0: ebiten.KeyX, 0xB: ebiten.KeyC, 0xF: ebiten.KeyV,
}

var (
	onColor  = color.RGBA{0xE0, 0xF8, 0xD0, 0xFF}
	offColor = color.RGBA{0x08, 0x18, 0x20, 0xFF}
)

type Game struct {
	vm      *cpu.CPU
	program []byte
	speed   int
	scale   int
	log     logrus.FieldLogger

	fault error

	frame    *ebiten.Image // reused 64×32 canvas
	lastSum  uint64
	uploaded bool
}

func newGame(program []byte, speed, scale int, log logrus.FieldLogger, trace bool) (*Game, error) {
	vm := cpu.New(cpu.Config{Log: log, Trace: trace})
	if err := vm.LoadProgram(program); err != nil {
		return nil, err
	}
	return &Game{
		vm:      vm,
		program: program,
		speed:   speed,
		scale:   scale,
		log:     log,
	}, nil
}

// reset restarts the loaded program from a clean machine.
func (g *Game) reset() {
	g.vm.Reset()
	if err := g.vm.LoadProgram(g.program); err != nil {
		g.fault = err
		return
	}
	g.fault = nil
	g.uploaded = false
}

// runFrame latches the keypad from pressed and runs one 60 Hz frame: up to
// speed instructions followed by a single timer tick.
func (g *Game) runFrame(pressed func(ebiten.Key) bool) {
	for k, key := range keymap {
		g.vm.Keypad.Set(uint8(k), pressed(key))
	}

	if g.fault != nil {
		return
	}

	for i := 0; i < g.speed; i++ {
		if err := g.vm.Step(); err != nil {
			g.fault = err
			var fault *cpu.Fault
			if errors.As(err, &fault) {
				g.log.WithFields(fault.Fields()).Error("program faulted; execution halted")
			} else {
				g.log.WithError(err).Error("execution halted")
			}
			return
		}
		// Give the host a chance to deliver a key.
		if g.vm.WaitingForKey {
			break
		}
	}

	g.vm.TickTimers()
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.log.Info("reset")
		g.reset()
	}

	g.runFrame(ebiten.IsKeyPressed)
	return nil
}

// dirty reports whether the display changed since the last upload.
func (g *Game) dirty() bool {
	sum := g.vm.Display.Checksum()
	if g.uploaded && sum == g.lastSum {
		return false
	}
	g.lastSum = sum
	g.uploaded = true
	return true
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.frame == nil {
		g.frame = ebiten.NewImage(display.Width, display.Height)
	}

	if g.dirty() {
		g.frame.WritePixels(g.vm.Display.RGBA(onColor, offColor))
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.frame, op)

	if g.fault != nil {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("%v\n%s\nF5 to reset", g.fault, g.vm.Snapshot()))
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return display.Width * g.scale, display.Height * g.scale
}

func main() {
	romPath := flag.String("rom", "", "program image or assembly source to run")
	speed := flag.Int("speed", 10, "instructions executed per 60 Hz frame")
	scale := flag.Int("scale", 10, "window pixels per display pixel")
	debug := flag.Bool("debug", false, "enable debug logging")
	trace := flag.Bool("trace", false, "log every executed instruction")
	flag.Parse()

	log := logrus.New()
	switch {
	case *trace:
		log.SetLevel(logrus.TraceLevel)
	case *debug:
		log.SetLevel(logrus.DebugLevel)
	}

	if *romPath == "" && flag.NArg() > 0 {
		*romPath = flag.Arg(0)
	}
	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "usage: desktop -rom <file>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	program, err := utils.ReadProgram(*romPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load program")
	}
	log.WithFields(logrus.Fields{
		"rom":         *romPath,
		"bytes":       len(program),
		"fingerprint": fmt.Sprintf("%016x", rom.Fingerprint(program)),
	}).Info("program loaded")

	game, err := newGame(program, *speed, *scale, log, *trace)
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(display.Width * *scale, display.Height * *scale)
	ebiten.SetWindowTitle("gochip8")

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
