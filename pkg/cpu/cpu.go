package cpu

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"gochip8/pkg/display"
	"gochip8/pkg/keypad"
)

const (
	MemorySize   = 4096
	ProgramStart = 0x200
	NumRegisters = 16
	StackDepth   = 16

	// MaxProgramSize is the space between ProgramStart and the end of memory.
	MaxProgramSize = MemorySize - ProgramStart

	FontBase      = 0x050
	FontGlyphSize = 5

	// RegF is the flag register written by carry, borrow, shift and collision results.
	RegF = 0xF
)

type CPU struct {
	Memory [MemorySize]byte
	V      [NumRegisters]uint8
	I      uint16
	PC     uint16

	Stack [StackDepth]uint16
	// SP indexes the next free stack slot; 0 means empty.
	SP uint8

	// DelayTimer and SoundTimer are decremented by the host through TickTimers.
	DelayTimer uint8
	SoundTimer uint8

	// WaitingForKey is set while an Fx0A instruction is waiting for a key.
	// The PC stays on the instruction until a key is pressed.
	WaitingForKey bool
	KeyRegister   uint8

	Display *display.Display
	Keypad  *keypad.Keypad

	// Random supplies the byte masked by Cxkk.
	Random func() byte

	// Log receives unknown-opcode and trace messages. If nil, nothing is logged.
	Log   logrus.FieldLogger
	Trace bool
}

// Config holds construction options. Zero values select the defaults.
type Config struct {
	Random func() byte
	Log    logrus.FieldLogger
	Trace  bool
}

// State is a copy of the interpreter registers, used for inspection and for
// restoring the machine in tests and debuggers.
type State struct {
	V             [NumRegisters]uint8
	I, PC         uint16
	Stack         [StackDepth]uint16
	SP            uint8
	DelayTimer    uint8
	SoundTimer    uint8
	WaitingForKey bool
	KeyRegister   uint8
}

func (s State) String() string {
	return fmt.Sprintf(
		"PC=0x%03X I=0x%03X SP=%d DT=%d ST=%d V=% X",
		s.PC, s.I, s.SP, s.DelayTimer, s.SoundTimer, s.V[:],
	)
}

func defaultRandom() byte {
	return byte(rand.IntN(256))
}

// New creates an interpreter with zeroed state, the hex font installed at
// FontBase and PC at ProgramStart.
func New(cfg Config) *CPU {
	c := &CPU{
		Display: display.New(),
		Keypad:  keypad.New(),
		Random:  cfg.Random,
		Log:     cfg.Log,
		Trace:   cfg.Trace,
	}
	if c.Random == nil {
		c.Random = defaultRandom
	}
	c.Reset()
	return c
}

// NewCPU creates an interpreter with the default configuration.
func NewCPU() *CPU {
	return New(Config{})
}

// Reset zeroes memory and registers, reinstalls the font, clears the display
// and releases every key.
func (c *CPU) Reset() {
	c.Memory = [MemorySize]byte{}
	c.V = [NumRegisters]uint8{}
	c.I = 0
	c.PC = ProgramStart
	c.Stack = [StackDepth]uint16{}
	c.SP = 0
	c.DelayTimer = 0
	c.SoundTimer = 0
	c.WaitingForKey = false
	c.KeyRegister = 0
	c.loadFont()
	c.Display.Clear()
	c.Keypad.Reset()
}

// LoadProgram copies a program image into memory at ProgramStart.
func (c *CPU) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes > %d bytes", ErrProgramTooLarge, len(program), MaxProgramSize)
	}
	copy(c.Memory[ProgramStart:], program)
	return nil
}

// Reg returns register Vx. Only the low nibble of x is used.
func (c *CPU) Reg(x uint8) uint8 {
	return c.V[x&0xF]
}

// SetReg stores val in register Vx. Only the low nibble of x is used.
func (c *CPU) SetReg(x uint8, val uint8) {
	c.V[x&0xF] = val
}

// Snapshot returns a copy of the register state.
func (c *CPU) Snapshot() State {
	return State{
		V:             c.V,
		I:             c.I,
		PC:            c.PC,
		Stack:         c.Stack,
		SP:            c.SP,
		DelayTimer:    c.DelayTimer,
		SoundTimer:    c.SoundTimer,
		WaitingForKey: c.WaitingForKey,
		KeyRegister:   c.KeyRegister,
	}
}

// Restore applies a register state previously taken with Snapshot.
func (c *CPU) Restore(s State) {
	c.V = s.V
	c.I = s.I
	c.PC = s.PC
	c.Stack = s.Stack
	c.SP = s.SP
	c.DelayTimer = s.DelayTimer
	c.SoundTimer = s.SoundTimer
	c.WaitingForKey = s.WaitingForKey
	c.KeyRegister = s.KeyRegister
}

// inRange reports whether n bytes starting at addr lie inside memory.
func inRange(addr uint16, n int) bool {
	return int(addr)+n <= MemorySize
}

// Fetch reads the big-endian opcode at PC without advancing it.
func (c *CPU) Fetch() (uint16, error) {
	if !inRange(c.PC, 2) {
		return 0, c.fault(0, ErrMemoryOutOfRange)
	}
	return uint16(c.Memory[c.PC])<<8 | uint16(c.Memory[c.PC+1]), nil
}

// Step fetches the opcode at PC and executes it.
func (c *CPU) Step() error {
	op, err := c.Fetch()
	if err != nil {
		return err
	}
	return c.Execute(op)
}

// Run executes up to steps instructions. It returns early on a fault or when
// the program starts waiting for a key.
func (c *CPU) Run(steps int) error {
	for i := 0; i < steps; i++ {
		if err := c.Step(); err != nil {
			return err
		}
		if c.WaitingForKey {
			return nil
		}
	}
	return nil
}

// TickTimers decrements the delay and sound timers, stopping at zero.
// The host calls it at 60 Hz, independently of the instruction rate.
func (c *CPU) TickTimers() {
	if c.DelayTimer > 0 {
		c.DelayTimer--
	}
	if c.SoundTimer > 0 {
		c.SoundTimer--
	}
}

// SoundActive reports whether the sound timer is running.
func (c *CPU) SoundActive() bool {
	return c.SoundTimer > 0
}
