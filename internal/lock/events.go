package lock

import (
	"time"
	"unicode"
)

// Sym identifies the kind of key that was pressed, independent of the
// terminal or display server that produced it.
type Sym int

const (
	SymNone Sym = iota
	SymChar
	SymReturn
	SymBackSpace
	SymEscape
	SymKeypadEnter
	SymKeypadDigit
	SymFunction
	SymModifier
)

// Event is something the event source delivered to the lock loop.
type Event interface {
	isEvent()
}

// KeyEvent is a key press. Rune is set for SymChar and SymKeypadDigit.
type KeyEvent struct {
	Sym  Sym
	Rune rune
}

// PointerEvent is pointer motion or a button press.
type PointerEvent struct{}

// ResizeEvent reports that the drawable changed size.
type ResizeEvent struct{}

func (KeyEvent) isEvent()     {}
func (PointerEvent) isEvent() {}
func (ResizeEvent) isEvent()  {}

// EventSource delivers raw input to the lock loop.
type EventSource interface {
	// Poll waits at most timeout for the next event.
	// ok is false when nothing arrived in time.
	Poll(timeout time.Duration) (ev Event, ok bool)
}

// ---- Key classification

type keyClass int

const (
	keyIgnored keyClass = iota
	keyPrintable
	keyCommit
	keyBackspace
	keyEscape
)

// normalize maps keypad Enter and keypad digits onto their main keyboard
// equivalents.
func normalize(k KeyEvent) KeyEvent {
	switch k.Sym {
	case SymKeypadEnter:
		return KeyEvent{Sym: SymReturn}
	case SymKeypadDigit:
		if k.Rune >= '0' && k.Rune <= '9' {
			return KeyEvent{Sym: SymChar, Rune: k.Rune}
		}
		return KeyEvent{Sym: SymFunction}
	}
	return k
}

func classify(k KeyEvent) keyClass {
	k = normalize(k)
	switch k.Sym {
	case SymReturn:
		return keyCommit
	case SymBackSpace:
		return keyBackspace
	case SymEscape:
		return keyEscape
	case SymChar:
		if k.Rune != unicode.ReplacementChar && unicode.IsPrint(k.Rune) {
			return keyPrintable
		}
	}
	return keyIgnored
}
