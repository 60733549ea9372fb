package spoke

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

func TestRunFleet_FeedsHub(t *testing.T) {
	m := radio.NewMedium()
	h := withHub(t, m)

	btnMAC := radio.MustParseAddr("24:0A:C4:00:00:10")
	sensorMAC := radio.MustParseAddr("24:0A:C4:00:00:11")
	f := &Fleet{Hub: hubMAC, Nodes: []NodeSpec{
		{Kind: KindButton, ID: "BTN7", MAC: btnMAC, Buttons: 3, Interval: 20 * time.Millisecond},
		{Kind: KindSensor, ID: "SONAR1", MAC: sensorMAC, Interval: 20 * time.Millisecond},
		{Kind: KindActuator, ID: "SERVO1", MAC: radio.MustParseAddr("24:0A:C4:00:00:12"), Slots: 4},
	}}
	require.NoError(t, f.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunFleet(ctx, f, func(a radio.Addr) (radio.Transport, error) { return m.Attach(a, 0) }, Discipline{}, nil, nil)
	}()

	seen := map[wire.Kind]bool{}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && !(seen[wire.KindEvent] && seen[wire.KindHeaderText]) {
		it, ok := h.Queue().Pop(context.Background(), 50*time.Millisecond)
		if !ok {
			continue
		}
		seen[it.Kind] = true
		switch it.Kind {
		case wire.KindEvent:
			assert.Equal(t, btnMAC, it.Src)
		case wire.KindHeaderText:
			assert.Equal(t, sensorMAC, it.Src)
			assert.Contains(t, string(it.Body()), `"id":"SONAR1"`)
		}
	}
	cancel()
	require.NoError(t, <-done)

	assert.True(t, seen[wire.KindEvent], "按键事件应到达集线器")
	assert.True(t, seen[wire.KindHeaderText], "传感器上报应到达集线器")
	_, ok := h.Registry().Resolve(wire.MakeID("BTN7"))
	assert.True(t, ok)
}

func TestRunFleet_OpenFailure(t *testing.T) {
	m := radio.NewMedium()
	f := &Fleet{Hub: hubMAC, Nodes: []NodeSpec{
		{Kind: KindSensor, ID: "S1", MAC: radio.MustParseAddr("24:0A:C4:00:00:21"), Interval: time.Second},
		{Kind: KindSensor, ID: "S2", MAC: radio.MustParseAddr("24:0A:C4:00:00:22"), Interval: time.Second},
	}}
	boom := errors.New("no radio")
	calls := 0
	err := RunFleet(context.Background(), f, func(a radio.Addr) (radio.Transport, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return m.Attach(a, 0)
	}, Discipline{}, nil, nil)
	assert.ErrorIs(t, err, boom)

	// 已打开的传输被关闭，地址可以重新挂接
	tr, err := m.Attach(radio.MustParseAddr("24:0A:C4:00:00:21"), 0)
	require.NoError(t, err)
	_ = tr.Close()
}
