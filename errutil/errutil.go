package errutil

import (
	"fmt"
)

// debug turns on invariant checks that are too expensive for lookup paths.
const debug = false

func Bug(format string, msg ...any) {
	if debug {
		panic(fmt.Sprintf(format, msg...))
	}
}

func BugOn(cond bool, format string, msg ...any) {
	if debug && cond {
		Bug(format, msg...)
	}
}
