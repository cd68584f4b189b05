// Package keypad holds the press/release latches of the 16-key hex keypad.
package keypad

import "fmt"

// NumKeys is the number of keys on the hex keypad (0x0-0xF).
const NumKeys = 16

// Keypad is a flat latch table. Last write wins; no history is kept.
type Keypad struct {
	keys [NumKeys]bool
}

// New returns a keypad with every key released.
func New() *Keypad {
	return &Keypad{}
}

func check(index uint8) {
	if int(index) >= NumKeys {
		panic(fmt.Sprintf("keypad: key index %d out of range", index))
	}
}

// Press latches key index as held down.
func (k *Keypad) Press(index uint8) {
	check(index)
	k.keys[index] = true
}

// Release latches key index as released.
func (k *Keypad) Release(index uint8) {
	check(index)
	k.keys[index] = false
}

// Set presses or releases key index.
func (k *Keypad) Set(index uint8, down bool) {
	check(index)
	k.keys[index] = down
}

// IsPressed reports whether key index is currently held.
func (k *Keypad) IsPressed(index uint8) bool {
	check(index)
	return k.keys[index]
}

// FirstPressed returns the lowest held key, if any.
func (k *Keypad) FirstPressed() (uint8, bool) {
	for i, down := range k.keys {
		if down {
			return uint8(i), true
		}
	}
	return 0, false
}

// Reset releases every key.
func (k *Keypad) Reset() {
	k.keys = [NumKeys]bool{}
}
