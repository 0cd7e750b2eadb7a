package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var ErrNoClient = errors.New("client address is required")

// ConvertPcap writes the trace of a pcap capture. Packets to client are
// downstream (r), packets from client upstream (s); everything else is
// ignored. Timestamps are relative to the first packet and the size is the
// IP packet length. It returns the number of trace lines written.
func ConvertPcap(r io.Reader, w io.Writer, client net.IP) (int, error) {
	if client == nil {
		return 0, ErrNoClient
	}
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("reading pcap header: %w", err)
	}

	bw := bufio.NewWriter(w)
	src := gopacket.NewPacketSource(pr, pr.LinkType())
	src.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	var first time.Time
	written := 0
	for {
		pkt, err := src.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, fmt.Errorf("reading packet %d: %w", written+1, err)
		}

		var from, to net.IP
		var size int
		switch ip := pkt.NetworkLayer().(type) {
		case *layers.IPv4:
			from, to, size = ip.SrcIP, ip.DstIP, int(ip.Length)
		case *layers.IPv6:
			from, to, size = ip.SrcIP, ip.DstIP, int(ip.Length)+40
		default:
			continue
		}

		var dir string
		switch {
		case to.Equal(client):
			dir = "r"
		case from.Equal(client):
			dir = "s"
		default:
			continue
		}

		ts := pkt.Metadata().Timestamp
		if first.IsZero() {
			first = ts
		}
		fmt.Fprintf(bw, "%d,%s,%d\n", ts.Sub(first).Nanoseconds(), dir, size)
		written++
	}
	return written, bw.Flush()
}
