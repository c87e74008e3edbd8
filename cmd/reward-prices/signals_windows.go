//go:build windows

package main

import "os"

// Windows has no user signals; use the game log, polling or POST /scan.
var scanSignals []os.Signal
