//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package main

import "errors"

var errNoRawTerm = errors.New("raw terminal mode is not supported on this platform")

func enterRawTerm() error {
	return errNoRawTerm
}

func exitRawTerm() error {
	return nil
}
