package lock

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/awnumar/memguard"
)

// ErrOverflow is returned when an append would fill the password buffer.
var ErrOverflow = errors.New("password buffer full")

// PasswordBuffer holds typed password bytes in locked, guard-paged memory.
//
// The buffer never grows: it is allocated once with a fixed capacity and one
// slot is always kept free, so Len() < Cap() holds after every operation.
// It is owned by the event loop and must not be shared.
type PasswordBuffer struct {
	mem *memguard.LockedBuffer
	n   int
}

// NewPasswordBuffer allocates a buffer that accepts at most capacity-1 bytes.
func NewPasswordBuffer(capacity int) *PasswordBuffer {
	if capacity < 2 {
		capacity = 2
	}
	return &PasswordBuffer{mem: memguard.NewBuffer(capacity)}
}

// Cap returns the buffer capacity, including the reserved slot.
func (b *PasswordBuffer) Cap() int {
	return b.mem.Size()
}

// Len returns the number of stored bytes.
func (b *PasswordBuffer) Len() int {
	return b.n
}

// VisualLen returns the number of logical characters (runes) stored.
func (b *PasswordBuffer) VisualLen() int {
	return utf8.RuneCount(b.Bytes())
}

// Append adds p to the buffer. If the result would reach capacity the input
// is dropped whole and ErrOverflow is returned; the content is unchanged.
func (b *PasswordBuffer) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if b.n+len(p) >= b.Cap() {
		return ErrOverflow
	}
	copy(b.mem.Bytes()[b.n:], p)
	b.n += len(p)
	return nil
}

// AppendRune UTF-8 encodes r and appends it.
func (b *PasswordBuffer) AppendRune(r rune) error {
	var enc [utf8.UTFMax]byte
	n := utf8.EncodeRune(enc[:], r)
	err := b.Append(enc[:n])
	memguard.WipeBytes(enc[:])
	return err
}

// Backspace removes the last logical character.
// Returns false if the buffer was already empty.
func (b *PasswordBuffer) Backspace() bool {
	if b.n == 0 {
		return false
	}
	_, size := utf8.DecodeLastRune(b.Bytes())
	if size < 1 {
		size = 1
	}
	memguard.WipeBytes(b.mem.Bytes()[b.n-size : b.n])
	b.n -= size
	return true
}

// Clear overwrites the stored bytes and resets the length to zero.
func (b *PasswordBuffer) Clear() {
	memguard.WipeBytes(b.mem.Bytes()[:b.n])
	b.n = 0
}

// Bytes returns a view of the stored bytes. The view aliases locked memory and
// is only valid until the next mutation; callers must not retain it.
func (b *PasswordBuffer) Bytes() []byte {
	return b.mem.Bytes()[:b.n]
}

// MaskedDisplay repeats mask until it covers VisualLen() characters.
// It is recomputed on every call.
func (b *PasswordBuffer) MaskedDisplay(mask string) string {
	n := b.VisualLen()
	if n == 0 || mask == "" {
		return ""
	}
	pattern := []rune(mask)
	var sb strings.Builder
	sb.Grow(n * utf8.RuneLen(pattern[0]))
	for i := 0; i < n; i++ {
		sb.WriteRune(pattern[i%len(pattern)])
	}
	return sb.String()
}

// Destroy wipes and releases the locked memory. The buffer is unusable afterwards.
func (b *PasswordBuffer) Destroy() {
	b.n = 0
	b.mem.Destroy()
}
