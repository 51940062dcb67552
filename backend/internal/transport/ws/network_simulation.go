package ws

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NetworkConditions degrades outgoing traffic so clients can be tried
// against a slow or lossy link. Only frames are ever lost; every other
// message is delayed but delivered.
type NetworkConditions struct {
	Latency   time.Duration
	Jitter    time.Duration
	FrameLoss float64
}

var networkProfiles = map[string]NetworkConditions{
	"mobile_3g":    {Latency: 100 * time.Millisecond, Jitter: 50 * time.Millisecond, FrameLoss: 0.02},
	"mobile_4g":    {Latency: 50 * time.Millisecond, Jitter: 20 * time.Millisecond, FrameLoss: 0.01},
	"wifi_poor":    {Latency: 80 * time.Millisecond, Jitter: 40 * time.Millisecond, FrameLoss: 0.03},
	"wifi_good":    {Latency: 20 * time.Millisecond, Jitter: 10 * time.Millisecond, FrameLoss: 0.005},
	"high_latency": {Latency: 200 * time.Millisecond, Jitter: 100 * time.Millisecond, FrameLoss: 0.05},
	"unstable":     {Latency: 60 * time.Millisecond, Jitter: 80 * time.Millisecond, FrameLoss: 0.04},
}

// NetworkProfile looks up a named preset. "" and "none" mean a clean link.
func NetworkProfile(name string) (NetworkConditions, error) {
	if name == "" || name == "none" {
		return NetworkConditions{}, nil
	}
	nc, ok := networkProfiles[name]
	if !ok {
		return NetworkConditions{}, fmt.Errorf("unknown network profile %q", name)
	}
	return nc, nil
}

func (nc NetworkConditions) Enabled() bool {
	return nc.Latency > 0 || nc.Jitter > 0 || nc.FrameLoss > 0
}

// delay samples one message's latency, never below zero.
func (nc NetworkConditions) delay() time.Duration {
	d := nc.Latency
	if nc.Jitter > 0 {
		d += time.Duration((2*rand.Float64() - 1) * float64(nc.Jitter))
	}
	return max(d, 0)
}

func (nc NetworkConditions) loseFrame() bool {
	return nc.FrameLoss > 0 && rand.Float64() < nc.FrameLoss
}

// SetNetworkConditions applies nc to every message queued from now on.
func (s *WSServer) SetNetworkConditions(nc NetworkConditions) {
	s.simMu.Lock()
	s.netsim = nc
	s.simMu.Unlock()

	s.logger.Info().
		Dur("latency", nc.Latency).
		Dur("jitter", nc.Jitter).
		Float64("frameLoss", nc.FrameLoss).
		Msg("network conditions set")
}

func (s *WSServer) NetworkConditions() NetworkConditions {
	s.simMu.RLock()
	defer s.simMu.RUnlock()
	return s.netsim
}

// shape stamps out with its delivery time. ok is false when the message is
// lost.
func (nc NetworkConditions) shape(out outbound, now time.Time) (outbound, bool) {
	if !nc.Enabled() {
		return out, true
	}
	if out.frame && nc.loseFrame() {
		return out, false
	}
	if d := nc.delay(); d > 0 {
		out.at = now.Add(d)
	}
	return out, true
}
