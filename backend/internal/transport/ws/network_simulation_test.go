package ws

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkProfile(t *testing.T) {
	clean, err := NetworkProfile("")
	require.NoError(t, err)
	assert.False(t, clean.Enabled())

	none, err := NetworkProfile("none")
	require.NoError(t, err)
	assert.Equal(t, clean, none)

	mobile, err := NetworkProfile("mobile_3g")
	require.NoError(t, err)
	assert.True(t, mobile.Enabled())
	assert.Equal(t, 100*time.Millisecond, mobile.Latency)

	_, err = NetworkProfile("dialup")
	assert.ErrorContains(t, err, "dialup")
}

func TestNetworkConditions_Shape(t *testing.T) {
	now := time.Now()

	out, ok := NetworkConditions{}.shape(outbound{frame: true}, now)
	assert.True(t, ok)
	assert.True(t, out.at.IsZero())

	lossy := NetworkConditions{FrameLoss: 1}
	_, ok = lossy.shape(outbound{frame: true}, now)
	assert.False(t, ok, "frames are lost")
	_, ok = lossy.shape(outbound{}, now)
	assert.True(t, ok, "other messages always arrive")

	slow := NetworkConditions{Latency: 50 * time.Millisecond, Jitter: 20 * time.Millisecond}
	for i := 0; i < 100; i++ {
		out, ok := slow.shape(outbound{}, now)
		require.True(t, ok)
		d := out.at.Sub(now)
		assert.GreaterOrEqual(t, d, 30*time.Millisecond)
		assert.LessOrEqual(t, d, 70*time.Millisecond)
	}

	// jitter larger than the latency never schedules into the past
	wild := NetworkConditions{Latency: time.Millisecond, Jitter: time.Second}
	for i := 0; i < 100; i++ {
		out, _ := wild.shape(outbound{}, now)
		assert.False(t, out.at.Before(now))
	}
}

func TestWSServer_LossyLinkDropsFramesOnly(t *testing.T) {
	s, _, url := newTestServer(t, CodecJSON)
	snapshot := newTestSnapshot(t)

	conn := dial(t, url)
	readUntil(t, conn, MessageTypeTrack)

	s.SetNetworkConditions(NetworkConditions{FrameLoss: 1})
	require.NoError(t, s.BroadcastFrame(snapshot))
	s.ObstacleHit(2, 0.3)

	msg := readJSON(t, conn)
	assert.Equal(t, MessageTypeEvent, msg["type"])
	assert.Equal(t, EventHit, msg["kind"])

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats["lost"])
	assert.Equal(t, true, stats["netsim"])
}

func TestWSServer_DelayedDelivery(t *testing.T) {
	s, _, url := newTestServer(t, CodecJSON)
	conn := dial(t, url)
	readUntil(t, conn, MessageTypeTrack)

	s.SetNetworkConditions(NetworkConditions{Latency: 150 * time.Millisecond})
	start := time.Now()
	s.OffTrack(mgl64.Vec3{90, 0, 2}, false)

	msg := readJSON(t, conn)
	assert.Equal(t, EventOffTrack, msg["kind"])
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
