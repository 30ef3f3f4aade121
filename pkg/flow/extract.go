// Copyright 2025 Balioune Networks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flow

import (
	"net"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/pkg/errors"
)

func addrFrom4(ip net.IP) netip.Addr {
	if v4 := ip.To4(); v4 != nil {
		return netip.AddrFrom4([4]byte(v4))
	}
	return netip.Addr{}
}

// Extractor turns raw Ethernet frames into Flows. It reuses its decoding
// buffers across calls, so a single Extractor must not be shared between
// goroutines.
type Extractor struct {
	parser *gopacket.DecodingLayerParser
	eth    layers.Ethernet
	dot1q  layers.Dot1Q
	ip4    layers.IPv4
	tcp    layers.TCP
	udp    layers.UDP
	icmp4  layers.ICMPv4
	types  []gopacket.LayerType
}

// NewExtractor returns a ready-to-use Extractor.
func NewExtractor() *Extractor {
	e := &Extractor{}
	e.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet,
		&e.eth, &e.dot1q, &e.ip4, &e.tcp, &e.udp, &e.icmp4)
	e.parser.IgnoreUnsupported = true
	return e
}

// Extract parses an Ethernet frame received on inPort into a Flow.
//
// The mapping follows OpenFlow 1.0 conventions: untagged frames record
// VLANNone, only the DSCP bits of the TOS octet are kept, ICMP type and
// code land in SrcPort/DstPort, and L4 ports of non-first IP fragments
// are zero. Fields beyond the deepest parsed layer stay zero.
func (e *Extractor) Extract(data []byte, inPort uint16) (Flow, error) {
	e.types = e.types[:0]
	if err := e.parser.DecodeLayers(data, &e.types); err != nil {
		return Flow{}, errors.Wrap(err, "decoding frame")
	}

	f := Flow{InPort: inPort, VLANID: VLANNone}
	for _, t := range e.types {
		switch t {
		case layers.LayerTypeEthernet:
			copy(f.EthSrc[:], e.eth.SrcMAC)
			copy(f.EthDst[:], e.eth.DstMAC)
			f.EthType = uint16(e.eth.EthernetType)
		case layers.LayerTypeDot1Q:
			f.VLANID = e.dot1q.VLANIdentifier
			f.VLANPCP = e.dot1q.Priority
			f.EthType = uint16(e.dot1q.Type)
		case layers.LayerTypeIPv4:
			f.IPSrc = IPv4FromAddr(addrFrom4(e.ip4.SrcIP))
			f.IPDst = IPv4FromAddr(addrFrom4(e.ip4.DstIP))
			f.IPProto = uint8(e.ip4.Protocol)
			f.IPTOS = e.ip4.TOS & DSCPMask
			if e.ip4.FragOffset != 0 {
				// Later fragments carry no L4 header.
				return f, nil
			}
		case layers.LayerTypeTCP:
			f.SrcPort = uint16(e.tcp.SrcPort)
			f.DstPort = uint16(e.tcp.DstPort)
		case layers.LayerTypeUDP:
			f.SrcPort = uint16(e.udp.SrcPort)
			f.DstPort = uint16(e.udp.DstPort)
		case layers.LayerTypeICMPv4:
			f.SrcPort = uint16(e.icmp4.TypeCode.Type())
			f.DstPort = uint16(e.icmp4.TypeCode.Code())
		}
	}
	return f, nil
}

// Extract is a convenience wrapper for one-off extraction; hot paths
// should hold their own Extractor.
func Extract(data []byte, inPort uint16) (Flow, error) {
	return NewExtractor().Extract(data, inPort)
}
