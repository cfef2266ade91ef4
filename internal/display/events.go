package display

import (
	"github.com/gdamore/tcell/v2"

	"vtlock/internal/lock"
)

// translate maps a tcell event onto a lock event. Events the lock has no use
// for (focus, paste, interrupts) are dropped.
func translate(ev tcell.Event) (lock.Event, bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return translateKey(ev), true
	case *tcell.EventMouse:
		return lock.PointerEvent{}, true
	case *tcell.EventResize:
		return lock.ResizeEvent{}, true
	}
	return nil, false
}

func translateKey(ev *tcell.EventKey) lock.KeyEvent {
	switch ev.Key() {
	case tcell.KeyEnter:
		return lock.KeyEvent{Sym: lock.SymReturn}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return lock.KeyEvent{Sym: lock.SymBackSpace}
	case tcell.KeyEscape:
		return lock.KeyEvent{Sym: lock.SymEscape}
	case tcell.KeyRune:
		if ev.Modifiers()&^tcell.ModShift != 0 {
			return lock.KeyEvent{Sym: lock.SymFunction}
		}
		return lock.KeyEvent{Sym: lock.SymChar, Rune: ev.Rune()}
	}
	return lock.KeyEvent{Sym: lock.SymFunction}
}
