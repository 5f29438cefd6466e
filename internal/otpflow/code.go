package otpflow

import (
	"regexp"
	"strings"
)

// CodeLength is the number of digit slots
const CodeLength = 6

// KeyBackspace is the key name delivered by the input fields
const KeyBackspace = "Backspace"

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Code is the ordered set of single-digit slots. The zero value is empty.
type Code struct {
	slots [CodeLength]string
}

// ParseCode fills a Code from a string, ignoring non-digits
func ParseCode(s string) Code {
	var c Code
	c.write(s, 0)
	return c
}

// String concatenates the slots
func (c Code) String() string {
	return strings.Join(c.slots[:], "")
}

// Slot returns the digit at index, or "" when empty or out of range
func (c Code) Slot(index int) string {
	if index < 0 || index >= CodeLength {
		return ""
	}
	return c.slots[index]
}

// Filled counts the non-empty slots
func (c Code) Filled() int {
	n := 0
	for _, s := range c.slots {
		if s != "" {
			n++
		}
	}
	return n
}

// Complete reports whether every slot holds a digit
func (c Code) Complete() bool {
	return c.Filled() == CodeLength
}

// ValidCode reports whether s is submittable: exactly six ASCII digits
func ValidCode(s string) bool {
	return codePattern.MatchString(s)
}

func sanitizeDigits(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// change applies typed or pasted text at index. It returns whether any slot
// changed and the slot that should take focus (-1 for no move).
func (c *Code) change(text string, index int) (bool, int) {
	if index < 0 || index >= CodeLength {
		return false, -1
	}
	digits := sanitizeDigits(text)
	switch {
	case text == "":
		if c.slots[index] == "" {
			return false, -1
		}
		c.slots[index] = ""
		return true, -1
	case digits == "":
		return false, -1
	case len(digits) == 1:
		changed := c.slots[index] != digits
		c.slots[index] = digits
		if index < CodeLength-1 {
			return changed, index + 1
		}
		return changed, -1
	default:
		changed, last := c.write(digits, index)
		return changed, last
	}
}

// write distributes digits forward from index and drops what does not fit
func (c *Code) write(digits string, index int) (bool, int) {
	digits = sanitizeDigits(digits)
	changed := false
	last := -1
	for i := 0; i < len(digits) && index+i < CodeLength; i++ {
		d := digits[i : i+1]
		if c.slots[index+i] != d {
			changed = true
		}
		c.slots[index+i] = d
		last = index + i
	}
	return changed, last
}

// backspace handles a key press. Only Backspace on an empty slot past the
// first one has an effect: the previous slot is cleared and focused.
func (c *Code) backspace(key string, index int) (bool, int) {
	if key != KeyBackspace || index <= 0 || index >= CodeLength {
		return false, -1
	}
	if c.slots[index] != "" {
		return false, -1
	}
	prev := index - 1
	changed := c.slots[prev] != ""
	c.slots[prev] = ""
	return changed, prev
}
