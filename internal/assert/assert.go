// Package assert reports internal inconsistencies: states the allocator core
// can only reach through a programming error, such as a release-triggered
// shrink failing or a Seek left with unvisited levels.
//
// Builds tagged brkdebug panic on the first violation. Regular builds log the
// violation at error level and let the caller continue with its contained
// fallback; a violation is never silently dropped.
package assert

import (
	"fmt"

	"github.com/joshuapare/brkit/internal/logger"
)

// Violation is the panic value raised in brkdebug builds.
type Violation struct {
	Msg string
}

func (v *Violation) Error() string { return "internal inconsistency: " + v.Msg }

// That checks cond and reports msg (formatted with args) when it is false.
// It returns cond so callers can branch to a fallback in regular builds.
func That(cond bool, msg string, args ...any) bool {
	if cond {
		return true
	}
	report(fmt.Sprintf(msg, args...))
	return false
}

func report(msg string) {
	if Enabled {
		panic(&Violation{Msg: msg})
	}
	logger.Error("internal inconsistency", "msg", msg)
}
