package poller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestWaitReportsEventfdWrite(t *testing.T) {
	p, err := New()
	assert.NoError(t, err)
	defer p.Close()

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	assert.NoError(t, err)
	defer unix.Close(efd)

	assert.NoError(t, p.Add(efd, Readable))

	var buf [8]byte
	buf[0] = 1
	_, err = unix.Write(efd, buf[:])
	assert.NoError(t, err)

	events, err := p.Wait(nil, 1000)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, efd, events[0].Fd)
	assert.True(t, events[0].Readable)
}
