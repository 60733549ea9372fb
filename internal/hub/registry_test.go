package hub

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/radio-hub/internal/protocol/wire"
	"github.com/taoyao-code/radio-hub/internal/radio"
)

func macN(n int) radio.Addr {
	return radio.Addr{0x02, 0, 0, 0, byte(n >> 8), byte(n)}
}

func TestRegistry_LearnResolve(t *testing.T) {
	clock := newClock()
	r := NewRegistry(0, clock.Now)

	_, ok := r.Resolve(wire.MakeID("SERVO1"))
	assert.False(t, ok)

	r.Learn(wire.MakeID("SERVO1"), macN(1))
	a, ok := r.Resolve(wire.MakeID("SERVO1"))
	require.True(t, ok)
	assert.Equal(t, macN(1), a)

	a, ok = r.Resolve(wire.MakeID("servo1"))
	require.True(t, ok, "大小写不敏感")
	assert.Equal(t, macN(1), a)

	// 同一 ID 换地址：原地更新，不占新槽位
	clock.Advance(time.Second)
	r.Learn(wire.MakeID("SERVO1"), macN(2))
	a, _ = r.Resolve(wire.MakeID("SERVO1"))
	assert.Equal(t, macN(2), a)
	assert.Equal(t, 1, r.Len())

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "SERVO1", snap[0].ID)
	assert.Equal(t, clock.Now(), snap[0].LastSeen)

	_, evicted := r.Learn(wire.NodeID{}, macN(3))
	assert.False(t, evicted)
	assert.Equal(t, 1, r.Len(), "空 ID 不入表")
}

// 环形覆盖：第 65 个不同 ID 覆盖最早的槽位，最早的 ID 不再可解析
// 这是有界表的既定取舍，不是 LRU：即便最早的节点刚刚活跃过也会被覆盖
func TestRegistry_RingWrapEvictsOldest(t *testing.T) {
	r := NewRegistry(DefaultRegistryCapacity, nil)
	for i := 0; i < DefaultRegistryCapacity; i++ {
		_, evicted := r.Learn(wire.MakeID(fmt.Sprintf("NODE%d", i)), macN(i))
		require.False(t, evicted)
	}
	assert.Equal(t, DefaultRegistryCapacity, r.Len())

	// NODE0 刷新后依然占据槽位 0
	r.Learn(wire.MakeID("NODE0"), macN(0))

	old, evicted := r.Learn(wire.MakeID("LATE"), macN(999))
	require.True(t, evicted)
	assert.Equal(t, "NODE0", old.String(), "刷新不改变覆盖顺序")

	_, ok := r.Resolve(wire.MakeID("NODE0"))
	assert.False(t, ok, "被覆盖的 ID 失去映射")

	a, ok := r.Resolve(wire.MakeID("LATE"))
	require.True(t, ok)
	assert.Equal(t, macN(999), a)

	a, ok = r.Resolve(wire.MakeID("NODE1"))
	require.True(t, ok)
	assert.Equal(t, macN(1), a)
	assert.Equal(t, DefaultRegistryCapacity, r.Len())
}

func TestRegistry_NoAlloc(t *testing.T) {
	r := NewRegistry(8, nil)
	id := wire.MakeID("BTN3")
	allocs := testing.AllocsPerRun(100, func() {
		r.Learn(id, macN(3))
		_, _ = r.Resolve(id)
	})
	assert.Zero(t, allocs)
}
