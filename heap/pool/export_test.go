package pool

import "github.com/joshuapare/brkit/internal/assert"

func assertEnabled() bool { return assert.Enabled }
