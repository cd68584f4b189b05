package cpu

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var (
	ErrStackOverflow    = errors.New("stack overflow")
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrMemoryOutOfRange = errors.New("memory access out of range")
	ErrProgramTooLarge  = errors.New("program too large for memory")
)

// Fault is returned by a step that could not complete. The machine state is
// left exactly as it was before the step; the host decides whether to halt.
type Fault struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at pc=0x%03X opcode=0x%04X: %v", f.PC, f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Fields returns the fault as structured log fields.
func (f *Fault) Fields() logrus.Fields {
	return logrus.Fields{
		"pc":     fmt.Sprintf("0x%03X", f.PC),
		"opcode": fmt.Sprintf("0x%04X", f.Opcode),
		"error":  f.Err.Error(),
	}
}

func (c *CPU) fault(op uint16, err error) error {
	return &Fault{PC: c.PC, Opcode: op, Err: err}
}
