package cpu

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"gochip8/pkg/disasm"
)

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// next advances past the current instruction.
func (c *CPU) next() {
	c.PC += 2
}

// skipIf advances past the current instruction, and past the following one
// too when cond holds.
func (c *CPU) skipIf(cond bool) {
	if cond {
		c.PC += 4
	} else {
		c.PC += 2
	}
}

func (c *CPU) logFields(op uint16) logrus.Fields {
	return logrus.Fields{
		"pc":     fmt.Sprintf("0x%03X", c.PC),
		"opcode": fmt.Sprintf("0x%04X", op),
	}
}

func (c *CPU) unknown(op uint16) {
	if c.Log != nil {
		c.Log.WithFields(c.logFields(op)).Debug("unrecognized opcode ignored")
	}
	c.next()
}

// Execute decodes op into its four nibbles and applies it to the machine.
// Every rule sets the PC itself: +2 for ordinary instructions, +4 for a taken
// skip, a new address for jumps, calls and returns, and no change while Fx0A
// is waiting for a key. Unrecognized opcodes are ignored and advance by 2.
//
// On a fault no state is modified and a *Fault is returned.
func (c *CPU) Execute(op uint16) error {
	if c.Trace && c.Log != nil {
		c.Log.WithFields(c.logFields(op)).WithField("asm", disasm.Disassemble(op)).Trace("exec")
	}

	n1 := (op & 0xF000) >> 12
	x := uint8((op & 0x0F00) >> 8)
	y := uint8((op & 0x00F0) >> 4)
	n := uint8(op & 0x000F)
	kk := uint8(op & 0x00FF)
	nnn := op & 0x0FFF

	switch n1 {
	case 0x0:
		switch op {
		case 0x00E0: // CLS
			c.Display.Clear()
			c.next()

		case 0x00EE: // RET: the saved address already points past the CALL.
			if c.SP == 0 {
				return c.fault(op, ErrStackUnderflow)
			}
			c.SP--
			c.PC = c.Stack[c.SP]

		default:
			c.unknown(op)
		}

	case 0x1: // JP nnn
		c.PC = nnn

	case 0x2: // CALL nnn
		if int(c.SP) >= StackDepth {
			return c.fault(op, ErrStackOverflow)
		}
		c.Stack[c.SP] = c.PC + 2
		c.SP++
		c.PC = nnn

	case 0x3: // SE Vx, kk
		c.skipIf(c.V[x] == kk)

	case 0x4: // SNE Vx, kk
		c.skipIf(c.V[x] != kk)

	case 0x5: // SE Vx, Vy
		if n != 0 {
			c.unknown(op)
			break
		}
		c.skipIf(c.V[x] == c.V[y])

	case 0x6: // LD Vx, kk
		c.V[x] = kk
		c.next()

	case 0x7: // ADD Vx, kk; wraps, VF untouched
		c.V[x] += kk
		c.next()

	case 0x8:
		if !c.alu(x, y, n) {
			c.unknown(op)
			break
		}
		c.next()

	case 0x9: // SNE Vx, Vy
		if n != 0 {
			c.unknown(op)
			break
		}
		c.skipIf(c.V[x] != c.V[y])

	case 0xA: // LD I, nnn
		c.I = nnn
		c.next()

	case 0xB: // JP V0, nnn
		c.PC = nnn + uint16(c.V[0])

	case 0xC: // RND Vx, kk
		c.V[x] = c.Random() & kk
		c.next()

	case 0xD: // DRW Vx, Vy, n
		if !inRange(c.I, int(n)) {
			return c.fault(op, ErrMemoryOutOfRange)
		}
		rows := c.Memory[c.I : c.I+uint16(n)]
		collision := c.Display.DrawSprite(int(c.V[x]), int(c.V[y]), rows)
		c.V[RegF] = b2u(collision)
		c.next()

	case 0xE:
		switch kk {
		case 0x9E: // SKP Vx
			c.skipIf(c.Keypad.IsPressed(c.V[x] & 0xF))
		case 0xA1: // SKNP Vx
			c.skipIf(!c.Keypad.IsPressed(c.V[x] & 0xF))
		default:
			c.unknown(op)
		}

	case 0xF:
		return c.executeF(op, x, kk)
	}

	return nil
}

// alu applies the 8xyN family. It reports false for an unassigned N.
// The result is written before VF so the flag wins when x is F.
func (c *CPU) alu(x, y, n uint8) bool {
	vx, vy := c.V[x], c.V[y]

	switch n {
	case 0x0: // LD Vx, Vy
		c.V[x] = vy
	case 0x1: // OR
		c.V[x] = vx | vy
	case 0x2: // AND
		c.V[x] = vx & vy
	case 0x3: // XOR
		c.V[x] = vx ^ vy
	case 0x4: // ADD with carry
		sum := uint16(vx) + uint16(vy)
		c.V[x] = uint8(sum)
		c.V[RegF] = b2u(sum > 0xFF)
	case 0x5: // SUB: VF=1 when no borrow
		c.V[x] = vx - vy
		c.V[RegF] = b2u(vx >= vy)
	case 0x6: // SHR: VF=shifted-out LSB
		c.V[x] = vx >> 1
		c.V[RegF] = vx & 0x01
	case 0x7: // SUBN: Vx = Vy - Vx, VF=1 when no borrow
		c.V[x] = vy - vx
		c.V[RegF] = b2u(vy >= vx)
	case 0xE: // SHL: VF=shifted-out MSB
		c.V[x] = vx << 1
		c.V[RegF] = vx >> 7
	default:
		return false
	}
	return true
}

func (c *CPU) executeF(op uint16, x, kk uint8) error {
	switch kk {
	case 0x07: // LD Vx, DT
		c.V[x] = c.DelayTimer
		c.next()

	case 0x0A: // LD Vx, K: hold the PC here until a key is down.
		key, ok := c.Keypad.FirstPressed()
		if !ok {
			c.WaitingForKey = true
			c.KeyRegister = x
			return nil
		}
		c.WaitingForKey = false
		c.V[x] = key
		c.next()

	case 0x15: // LD DT, Vx
		c.DelayTimer = c.V[x]
		c.next()

	case 0x18: // LD ST, Vx
		c.SoundTimer = c.V[x]
		c.next()

	case 0x1E: // ADD I, Vx
		c.I += uint16(c.V[x])
		c.next()

	case 0x29: // LD F, Vx
		c.I = FontBase + uint16(c.V[x]&0xF)*FontGlyphSize
		c.next()

	case 0x33: // LD B, Vx
		if !inRange(c.I, 3) {
			return c.fault(op, ErrMemoryOutOfRange)
		}
		v := c.V[x]
		c.Memory[c.I] = v / 100
		c.Memory[c.I+1] = (v / 10) % 10
		c.Memory[c.I+2] = v % 10
		c.next()

	case 0x55: // LD [I], Vx
		if !inRange(c.I, int(x)+1) {
			return c.fault(op, ErrMemoryOutOfRange)
		}
		copy(c.Memory[c.I:], c.V[:x+1])
		c.next()

	case 0x65: // LD Vx, [I]
		if !inRange(c.I, int(x)+1) {
			return c.fault(op, ErrMemoryOutOfRange)
		}
		copy(c.V[:x+1], c.Memory[c.I:])
		c.next()

	default:
		c.unknown(op)
	}
	return nil
}
