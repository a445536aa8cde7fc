package main

import "fmt"

// exitError pairs an error with the process exit code it should produce:
// 1 usage, 2 I/O, 3 validation/parse. A command that returns a plain
// error exits 1 through main's fallback.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}

func ioErrorf(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

func validationErrorf(format string, args ...any) error {
	return &exitError{code: 3, err: fmt.Errorf(format, args...)}
}
