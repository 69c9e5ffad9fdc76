//go:build windows
// +build windows

package main

// enableRawMode is a no-op on Windows; keys are read after Enter
func enableRawMode(fd int) (func(), error) {
	return func() {}, nil
}
