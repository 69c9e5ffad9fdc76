//go:build linux
// +build linux

package main

import (
	"syscall"
	"unsafe"
)

// enableRawMode turns off line buffering and echo so single keys can be read.
// The returned func restores the previous terminal state.
func enableRawMode(fd int) (func(), error) {
	var oldState syscall.Termios
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), syscall.TCGETS, uintptr(unsafe.Pointer(&oldState))); errno != 0 {
		return nil, errno
	}

	newState := oldState
	// Keep output processing (OPOST) enabled so \n still works correctly
	newState.Lflag &^= syscall.ICANON | syscall.ECHO
	newState.Cc[syscall.VMIN] = 1
	newState.Cc[syscall.VTIME] = 0

	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), syscall.TCSETS, uintptr(unsafe.Pointer(&newState))); errno != 0 {
		return nil, errno
	}

	return func() {
		syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), syscall.TCSETS, uintptr(unsafe.Pointer(&oldState)))
	}, nil
}
