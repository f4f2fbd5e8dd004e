package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

// crashScreen is finalized before a crash report is printed
var crashScreen atomic.Pointer[tcell.Screen]

func registerCrashScreen(s tcell.Screen) {
	crashScreen.Store(&s)
}

// handleCrash restores the terminal and prints the stack trace, then exits
func handleCrash(r any) {
	if r == nil {
		return
	}
	if s := crashScreen.Swap(nil); s != nil {
		(*s).Fini()
	}

	fmt.Fprintf(os.Stderr, "\nSANDBOX CRASHED: %v\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
	os.Exit(1)
}

// goSafe runs fn on a new goroutine with terminal cleanup on panic
func goSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				handleCrash(r)
			}
		}()
		fn()
	}()
}
