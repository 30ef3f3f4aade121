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

// Package flow defines the canonical packet header record used by the
// classifier, the wildcard algebra over it, and the extraction of a
// record from raw packet bytes.
//
// Flow and Wildcards are plain comparable value types. This is load
// bearing: the classifier uses them directly as map keys, so structural
// equality and the runtime's map hashing stand in for the hand-rolled
// hash tables of classical flow classifiers.
package flow

import (
	"fmt"
	"net/netip"
	"strings"
)

const (
	// EthAddrLen is the length of an Ethernet address in bytes.
	EthAddrLen = 6

	// VLANNone is the VLAN ID recorded for untagged frames
	// (OFP_VLAN_NONE in OpenFlow 1.0).
	VLANNone uint16 = 0xffff

	// EthTypeIPv4 is the Ethernet type of IPv4 payloads.
	EthTypeIPv4 uint16 = 0x0800

	// DSCPMask selects the DSCP bits of the IPv4 TOS octet; the ECN
	// bits are not classifiable.
	DSCPMask uint8 = 0xfc
)

// IP protocol numbers the extractor cares about.
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// MAC is an Ethernet address.
type MAC [EthAddrLen]byte

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether m is the all-zero address.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// IPv4 is an IPv4 address in host byte order, chosen over netip.Addr so
// that masking is a single AND and the containing structs stay
// comparable and compact.
type IPv4 uint32

// IPv4FromAddr converts a netip address. Non-IPv4 addresses map to 0.
func IPv4FromAddr(a netip.Addr) IPv4 {
	if !a.Is4() {
		return 0
	}
	b := a.As4()
	return IPv4(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// Addr converts back to a netip address.
func (ip IPv4) Addr() netip.Addr {
	return netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)})
}

func (ip IPv4) String() string {
	return ip.Addr().String()
}

// Flow is the canonical record of a packet's classifiable header
// fields: the L2/L3/L4 tuple plus ingress metadata. A Flow is always
// fully specified; wildcarding lives in Wildcards, never here.
//
// Fields of non-IPv4 packets beyond L2 are zero. ICMP type and code are
// carried in SrcPort and DstPort respectively, mirroring how OpenFlow
// overlays them on the transport ports.
type Flow struct {
	TunID   uint32
	IPSrc   IPv4
	IPDst   IPv4
	InPort  uint16
	VLANID  uint16
	EthType uint16
	SrcPort uint16
	DstPort uint16
	EthSrc  MAC
	EthDst  MAC
	IPProto uint8
	VLANPCP uint8
	IPTOS   uint8
}

func (f Flow) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tun_id=%#x in_port=%d vlan=%d pcp=%d", f.TunID, f.InPort, f.VLANID, f.VLANPCP)
	fmt.Fprintf(&b, " eth_src=%s eth_dst=%s eth_type=%#04x", f.EthSrc, f.EthDst, f.EthType)
	fmt.Fprintf(&b, " ip_src=%s ip_dst=%s proto=%d tos=%#x", f.IPSrc, f.IPDst, f.IPProto, f.IPTOS)
	fmt.Fprintf(&b, " tp_src=%d tp_dst=%d", f.SrcPort, f.DstPort)
	return b.String()
}
