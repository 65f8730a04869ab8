package assert

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/brkit/internal/logger"
)

func TestThat_HoldsIsSilent(t *testing.T) {
	require.True(t, That(true, "never %d", 1))
}

func TestThat_ViolationReported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Enabled: true, Writer: &buf}))
	t.Cleanup(func() { _ = logger.Init(logger.Options{}) })

	if Enabled {
		require.PanicsWithError(t, "internal inconsistency: shrink failed by 16", func() {
			That(false, "shrink failed by %d", 16)
		})
		return
	}

	require.False(t, That(false, "shrink failed by %d", 16))
	require.Contains(t, buf.String(), "internal inconsistency")
	require.Contains(t, buf.String(), "shrink failed by 16")
}
