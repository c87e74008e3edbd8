//go:build !windows

package main

import (
	"os"
	"syscall"
)

// scanSignals request a detection cycle, e.g. from a window manager hotkey
// running `pkill -USR1 reward-prices`.
var scanSignals = []os.Signal{syscall.SIGUSR1}
