package spsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testMsg struct {
	payload []byte
}

func newTestMsg(defaultCap int) testMsg {
	return testMsg{payload: make([]byte, 0, defaultCap)}
}

func TestPushPopOrder(t *testing.T) {
	p, c, err := New[testMsg](4, 16, newTestMsg)
	assert.NoError(t, err)

	for i := 0; i < 3; i++ {
		msg := p.Collect()
		msg.payload = append(msg.payload, byte(i))
		assert.True(t, p.TryPush(msg))
	}

	for i := 0; i < 3; i++ {
		msg, ok := c.Pop()
		assert.True(t, ok)
		assert.Equal(t, []byte{byte(i)}, msg.payload)
	}

	_, ok := c.Pop()
	assert.False(t, ok)
}

func TestPushFailsWhenFull(t *testing.T) {
	p, _, err := New[testMsg](2, 0, newTestMsg)
	assert.NoError(t, err)

	assert.True(t, p.TryPush(p.Collect()))
	assert.True(t, p.TryPush(p.Collect()))
	assert.False(t, p.TryPush(p.Collect()))
}

func TestRecycleFeedsCollect(t *testing.T) {
	p, c, err := New[testMsg](4, 8, newTestMsg)
	assert.NoError(t, err)

	msg := p.Collect()
	msg.payload = append(msg.payload, 'x')
	assert.True(t, p.TryPush(msg))

	got, ok := c.Pop()
	assert.True(t, ok)
	assert.True(t, c.Recycle(got))

	recycled := p.Collect()
	assert.Equal(t, []byte{'x'}, recycled.payload)
}

func TestEventNotification(t *testing.T) {
	p, c, err := New[testMsg](4, 0, newTestMsg)
	assert.NoError(t, err)

	assert.True(t, p.TryPush(p.Collect()))
	assert.NoError(t, c.ReadEvent())
}
