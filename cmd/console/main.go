package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gochip8/pkg/cpu"
	"gochip8/pkg/keypad"
	"gochip8/pkg/rom"
	"gochip8/pkg/utils"
)

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1B

	frameRate = 60
)

// keyBytes maps terminal input to hex keys using the same layout as the
// desktop driver (1234/QWER/ASDF/ZXCV).
var keyBytes = map[byte]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

var errQuit = errors.New("quit requested")

// Terminals deliver key presses but no releases, so every press keeps its
// key down for a fixed number of frames.
type console struct {
	vm    *cpu.CPU
	speed int
	hold  int
	out   io.Writer

	held    [keypad.NumKeys]int
	lastSum uint64
	drawn   bool
}

// press handles one byte of terminal input.
func (c *console) press(b byte) error {
	if b == keyEscape || b == keyCtrlC {
		return errQuit
	}
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	if k, ok := keyBytes[b]; ok {
		c.held[k] = c.hold
	}
	return nil
}

// frame runs one 60 Hz frame and redraws the screen if it changed.
func (c *console) frame() error {
	for k := range c.held {
		c.vm.Keypad.Set(uint8(k), c.held[k] > 0)
		if c.held[k] > 0 {
			c.held[k]--
		}
	}

	for i := 0; i < c.speed; i++ {
		if err := c.vm.Step(); err != nil {
			return err
		}
		if c.vm.WaitingForKey {
			break
		}
	}
	c.vm.TickTimers()

	return c.render()
}

func (c *console) render() error {
	sum := c.vm.Display.Checksum()
	if c.drawn && sum == c.lastSum {
		return nil
	}
	c.lastSum = sum
	c.drawn = true

	// Redraw in place from the home position.
	frame := strings.ReplaceAll(c.vm.Display.String(), "\n", "\r\n")
	_, err := fmt.Fprint(c.out, "\x1b[H", frame)
	return err
}

// readKeys copies stdin to keys until it fails.
func readKeys(r io.Reader, keys chan<- byte) {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			keys <- b
		}
		if err != nil {
			close(keys)
			return
		}
	}
}

func (c *console) run(keys <-chan byte) error {
	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()

	for range ticker.C {
	drain:
		for {
			select {
			case b, ok := <-keys:
				if !ok {
					return errQuit
				}
				if err := c.press(b); err != nil {
					return err
				}
			default:
				break drain
			}
		}

		if err := c.frame(); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	romPath := flag.String("rom", "", "program image or assembly source to run")
	speed := flag.Int("speed", 10, "instructions executed per 60 Hz frame")
	hold := flag.Int("hold", 6, "frames a key stays pressed after a keystroke")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if *romPath == "" && flag.NArg() > 0 {
		*romPath = flag.Arg(0)
	}
	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "usage: console -rom <file>")
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
	}).Debug("program loaded")

	vm := cpu.New(cpu.Config{Log: log})
	if err := vm.LoadProgram(program); err != nil {
		log.WithError(err).Fatal("failed to load program")
	}

	if err := enterRawTerm(); err != nil {
		log.WithError(err).Fatal("failed to enter raw mode")
	}
	fmt.Print("\x1b[2J\x1b[?25l")

	keys := make(chan byte, 64)
	go readKeys(os.Stdin, keys)

	c := &console{vm: vm, speed: *speed, hold: *hold, out: os.Stdout}
	err = c.run(keys)

	fmt.Print("\x1b[?25h\r\n")
	if rerr := exitRawTerm(); rerr != nil {
		log.WithError(rerr).Error("failed to restore terminal")
	}

	if err != nil && !errors.Is(err, errQuit) {
		var fault *cpu.Fault
		if errors.As(err, &fault) {
			log.WithFields(fault.Fields()).Error("program faulted")
		} else {
			log.WithError(err).Error("execution halted")
		}
		fmt.Println(vm.Snapshot())
		os.Exit(1)
	}
}
