package network

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/encoderdaq/internal/monitoring"
)

// ReplayPCAP feeds the UDP payloads of a libpcap capture to h as if they had
// arrived on the live socket. Only datagrams addressed to port are replayed;
// port 0 accepts any. Replay stops at end of file, when h is done, or when
// ctx is cancelled. It returns the number of payloads delivered.
func ReplayPCAP(ctx context.Context, r io.Reader, port uint16, h Handler, stats StatsRecorder) (int, error) {
	if stats == nil {
		stats = noopStats{}
	}
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open capture: %w", err)
	}

	source := gopacket.NewPacketSource(reader, reader.LinkType())
	delivered, seen := 0, 0
	for !h.Done() {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		packet, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return delivered, fmt.Errorf("capture packet %d: %w", seen+1, err)
		}
		seen++

		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if port != 0 && uint16(udp.DstPort) != port {
			continue
		}

		delivered++
		stats.AddPacket(len(udp.Payload))
		if err := h.HandleChunk(udp.Payload); err != nil {
			stats.AddError(err)
			monitoring.Logf("Capture packet %d: %v", seen, err)
		}
	}
	monitoring.Logf("Capture replay complete: %d of %d packets delivered", delivered, seen)
	return delivered, nil
}
