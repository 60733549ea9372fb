package spoke

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/radio-hub/internal/radio"
)

func writeFleet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFleet(t *testing.T) {
	path := writeFleet(t, `
hub: "24:0A:C4:00:00:01"
nodes:
  - kind: button
    id: BTN3
    mac: "24:0A:C4:00:00:10"
    interval: 1500ms
  - kind: Sensor
    id: SONAR1
    mac: "24:0A:C4:00:00:11"
  - kind: actuator
    id: SERVO1
    mac: "24:0A:C4:00:00:12"
    slots: 4
`)
	f, err := LoadFleet(path)
	require.NoError(t, err)
	assert.Equal(t, radio.MustParseAddr("24:0A:C4:00:00:01"), f.Hub)
	require.Len(t, f.Nodes, 3)
	assert.Equal(t, 1500*time.Millisecond, f.Nodes[0].Interval)
	assert.Equal(t, 1, f.Nodes[0].Buttons)
	assert.Equal(t, KindSensor, f.Nodes[1].Kind)
	assert.Equal(t, 2*time.Second, f.Nodes[1].Interval, "默认上报周期")
	assert.Equal(t, 4, f.Nodes[2].Slots)
}

func TestLoadFleet_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"缺少 hub", `nodes: []`},
		{"未知类型", "hub: \"24:0A:C4:00:00:01\"\nnodes:\n  - {kind: lamp, id: L1, mac: \"24:0A:C4:00:00:10\"}"},
		{"缺少 id", "hub: \"24:0A:C4:00:00:01\"\nnodes:\n  - {kind: button, mac: \"24:0A:C4:00:00:10\"}"},
		{"地址重复", "hub: \"24:0A:C4:00:00:01\"\nnodes:\n  - {kind: button, id: A, mac: \"24:0A:C4:00:00:10\"}\n  - {kind: button, id: B, mac: \"24:0A:C4:00:00:10\"}"},
		{"与 hub 地址相同", "hub: \"24:0A:C4:00:00:01\"\nnodes:\n  - {kind: button, id: A, mac: \"24:0A:C4:00:00:01\"}"},
		{"非法地址", "hub: \"24:0A:C4:00:00:01\"\nnodes:\n  - {kind: button, id: A, mac: \"nope\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFleet(writeFleet(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadFleet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
