package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlePanic_WritesLog(t *testing.T) {
	var written string
	var code int
	osWriteFile = func(name string, data []byte, perm os.FileMode) error {
		assert.Equal(t, panicLogFile, name)
		written = string(data)
		return nil
	}
	osExit = func(c int) { code = c }
	t.Cleanup(func() {
		osWriteFile = os.WriteFile
		osExit = os.Exit
	})

	func() {
		defer handlePanic()
		panic("boom")
	}()

	require.Contains(t, written, "panic: boom")
	assert.Equal(t, 2, code)
}

func TestHandlePanic_LogWriteFails(t *testing.T) {
	var code int
	osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only") }
	osExit = func(c int) { code = c }
	t.Cleanup(func() {
		osWriteFile = os.WriteFile
		osExit = os.Exit
	})

	func() {
		defer handlePanic()
		panic("boom")
	}()
	assert.Equal(t, 2, code)
}

func TestHandlePanic_NoPanic(t *testing.T) {
	called := false
	osExit = func(int) { called = true }
	t.Cleanup(func() { osExit = os.Exit })

	func() { defer handlePanic() }()
	assert.False(t, called)
}
