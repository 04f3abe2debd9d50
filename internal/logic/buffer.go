package logic

import "strings"

// PasswordLength is the fixed number of digits in a password.
const PasswordLength = 5

// Buffer holds the digits typed so far.
type Buffer struct {
	data [PasswordLength]rune
	n    int
}

// Push appends a digit. It reports false when the buffer is already full.
func (b *Buffer) Push(r rune) bool {
	if b.n >= len(b.data) {
		return false
	}
	b.data[b.n] = r
	b.n++
	return true
}

// Pop removes the last digit. It reports false when the buffer is empty.
func (b *Buffer) Pop() bool {
	if b.n == 0 {
		return false
	}
	b.n--
	return true
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.n = 0
}

// Len returns the number of digits entered.
func (b *Buffer) Len() int { return b.n }

// Full reports whether every position has been entered.
func (b *Buffer) Full() bool { return b.n == len(b.data) }

// String returns the entered digits.
func (b *Buffer) String() string {
	return string(b.data[:b.n])
}

// Render returns a fixed-width view of the buffer: entered positions show
// the digit (or '*' when masked) and the rest show '-'.
func (b *Buffer) Render(masked bool) string {
	var sb strings.Builder
	for i := range b.data {
		switch {
		case i >= b.n:
			sb.WriteByte('-')
		case masked:
			sb.WriteByte('*')
		default:
			sb.WriteRune(b.data[i])
		}
	}
	return sb.String()
}
