package controller

import (
	"fmt"
	"io"
)

// LoadError reports a descriptor module that could not be loaded or whose
// factory failed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("error loading controller descriptor @%q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Format prints the stack trace of the underlying error for %+v.
func (e *LoadError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "error loading controller descriptor @%q: %+v", e.Path, e.Err)
		return
	}
	io.WriteString(s, e.Error())
}

// RegisterError reports a route the router refused.
type RegisterError struct {
	Method string
	Path   string
	Err    error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("registering %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RegisterError) Unwrap() error { return e.Err }
