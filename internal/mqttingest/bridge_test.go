package mqttingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceFromTopic(t *testing.T) {
	id, err := DeviceFromTopic("carbonseed/ESP32-FURNACE-01/readings")
	require.NoError(t, err)
	assert.Equal(t, "ESP32-FURNACE-01", id)

	bad := []string{
		"carbonseed//readings",
		"carbonseed/ESP32-01/status",
		"other/ESP32-01/readings",
		"carbonseed/ESP32-01",
		"carbonseed/a/b/readings",
	}
	for _, topic := range bad {
		_, err := DeviceFromTopic(topic)
		assert.Error(t, err, topic)
	}
}
