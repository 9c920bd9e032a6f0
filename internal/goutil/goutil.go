package goutil

import "runtime/debug"
import "log"

func SafeGo(logger *log.Logger, fn func()) {
	// the curses UI owns the terminal, so a bare panic message on stdout is
	// lost - capture it in our logger before crashing out again...
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
