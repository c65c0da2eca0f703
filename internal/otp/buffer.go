package otp

import (
	"regexp"
	"strings"
)

// Length is the number of digits in a one-time code
const Length = 6

var fullCode = regexp.MustCompile(`^\d{6}$`)

// Buffer holds the six single-digit slots of a code and which slot has focus.
// It is rebuilt for every verification attempt and never persisted.
type Buffer struct {
	digits [Length]string
	focus  int
}

// NewBuffer returns an empty buffer focused on the first slot
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Change sets slot to raw. Non-numeric input is rejected without touching state.
// A digit moves focus to the next slot; an empty value clears the slot.
func (b *Buffer) Change(slot int, raw string) bool {
	if slot < 0 || slot >= Length {
		return false
	}
	if raw != "" && !isDigit(raw) {
		return false
	}
	b.digits[slot] = raw
	if raw != "" && slot < Length-1 {
		b.focus = slot + 1
	}
	return true
}

// Backspace on an empty slot moves focus to the previous one. It never clears a neighbor.
func (b *Buffer) Backspace(slot int) {
	if slot < 0 || slot >= Length {
		return
	}
	if b.digits[slot] == "" && slot > 0 {
		b.focus = slot - 1
	}
}

// Paste distributes a full code over all slots. Anything but exactly six digits is ignored.
func (b *Buffer) Paste(raw string) bool {
	if !fullCode.MatchString(raw) {
		return false
	}
	for i := 0; i < Length; i++ {
		b.digits[i] = raw[i : i+1]
	}
	b.focus = Length - 1
	return true
}

// Code concatenates the filled slots
func (b *Buffer) Code() string {
	return strings.Join(b.digits[:], "")
}

// Complete reports whether every slot holds a digit
func (b *Buffer) Complete() bool {
	return len(b.Code()) == Length
}

// Digits returns the slot values
func (b *Buffer) Digits() [Length]string {
	return b.digits
}

// Focus returns the focused slot index
func (b *Buffer) Focus() int {
	return b.focus
}

// Reset empties every slot and focuses the first one
func (b *Buffer) Reset() {
	*b = Buffer{}
}

func isDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}
