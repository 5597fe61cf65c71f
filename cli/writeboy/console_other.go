//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package main

func initConsole() {}

func isTerminal(fd uintptr) bool {
	return false
}
