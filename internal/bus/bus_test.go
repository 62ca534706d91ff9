package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilBusIsSafe(t *testing.T) {
	var b *Bus

	require.NoError(t, b.Publish(context.Background(), SubjectReadingIngested, map[string]any{"ok": true}))
	assert.False(t, b.Connected())
	b.Close()

	_, err := b.Subscribe(context.Background(), SubjectAlertTriggered, "alert-worker", func(context.Context, []byte) error {
		return nil
	})
	assert.Error(t, err)
}
