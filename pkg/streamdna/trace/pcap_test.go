package trace

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipv4Packet(t *testing.T, src, dst net.IP, payload int) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    src,
		DstIP:    dst,
	}
	udp := &layers.UDP{SrcPort: 443, DstPort: 50000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(make([]byte, payload))))
	return buf.Bytes()
}

func TestConvertPcap(t *testing.T) {
	client := net.IPv4(10, 0, 0, 2).To4()
	server := net.IPv4(10, 0, 0, 1).To4()
	other := net.IPv4(10, 0, 0, 9).To4()

	var capture bytes.Buffer
	w := pcapgo.NewWriter(&capture)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))

	base := time.Unix(1700000000, 0)
	packets := []struct {
		at       time.Duration
		src, dst net.IP
		payload  int
	}{
		{0, server, client, 1000},
		{500 * time.Millisecond, client, server, 10},
		{time.Second, other, server, 99},
		{2 * time.Second, server, client, 1400},
	}
	for _, p := range packets {
		data := ipv4Packet(t, p.src, p.dst, p.payload)
		ci := gopacket.CaptureInfo{Timestamp: base.Add(p.at), CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
	}

	var out bytes.Buffer
	n, err := ConvertPcap(&capture, &out, client)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// IP length = 20 (IPv4) + 8 (UDP) + payload
	assert.Equal(t, "0,r,1028\n500000000,s,38\n2000000000,r,1428\n", out.String())

	events, skipped, err := Parse(strings.NewReader(out.String()), "converted")
	require.NoError(t, err)
	assert.Zero(t, skipped)
	last, err := LastTime(events)
	require.NoError(t, err)
	assert.Equal(t, 2.0, last)
}

func TestConvertPcapRequiresClient(t *testing.T) {
	_, err := ConvertPcap(bytes.NewReader(nil), &bytes.Buffer{}, nil)
	require.ErrorIs(t, err, ErrNoClient)
}

func TestConvertPcapBadHeader(t *testing.T) {
	_, err := ConvertPcap(strings.NewReader("not a pcap file at all"), &bytes.Buffer{}, net.IPv4(1, 2, 3, 4))
	require.Error(t, err)
}
