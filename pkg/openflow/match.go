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

// Package openflow carries the OpenFlow 1.0 flow match wire format and
// its translation to and from classifier rules. It covers only the
// match description; flow_mod processing and the control channel live
// with the protocol layer, not here.
package openflow

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/balioune/ovs/pkg/flow"
)

// Wildcard flags of the ofp_match wildcards word. The nw_src/nw_dst
// fields wildcard per bit: a 6-bit count of don't-care low-order
// address bits, 32 or more meaning the whole address.
const (
	WildInPort  uint32 = 1 << 0
	WildVLANID  uint32 = 1 << 1
	WildEthSrc  uint32 = 1 << 2
	WildEthDst  uint32 = 1 << 3
	WildEthType uint32 = 1 << 4
	WildIPProto uint32 = 1 << 5
	WildSrcPort uint32 = 1 << 6
	WildDstPort uint32 = 1 << 7

	SrcShift        = 8
	WildSrcMask     uint32 = 0x3f << SrcShift
	WildSrcAll      uint32 = 32 << SrcShift
	DstShift        = 14
	WildDstMask     uint32 = 0x3f << DstShift
	WildDstAll      uint32 = 32 << DstShift
	WildVLANPCP     uint32 = 1 << 20
	WildIPTOS       uint32 = 1 << 21

	// WildAll covers every standard OpenFlow 1.0 wildcard flag.
	WildAll uint32 = 1<<22 - 1

	// WildTunID is the Nicira extension flag wildcarding the tunnel
	// ID; only meaningful with FormatTunIDFromCookie.
	WildTunID uint32 = 1 << 25
)

// MatchLen is the wire size of an ofp_match.
const MatchLen = 40

// Match is the OpenFlow 1.0 ofp_match structure. All multi-byte fields
// are host-order here; the codec converts to network order.
type Match struct {
	Wildcards uint32
	InPort    uint16
	EthSrc    flow.MAC
	EthDst    flow.MAC
	VLANID    uint16
	VLANPCP   uint8
	EthType   uint16
	IPTOS     uint8
	IPProto   uint8
	IPSrc     flow.IPv4
	IPDst     flow.IPv4
	SrcPort   uint16
	DstPort   uint16
}

// MarshalBinary serializes the match to its 40-byte wire form.
func (m *Match) MarshalBinary() ([]byte, error) {
	b := make([]byte, MatchLen)
	binary.BigEndian.PutUint32(b[0:4], m.Wildcards)
	binary.BigEndian.PutUint16(b[4:6], m.InPort)
	copy(b[6:12], m.EthSrc[:])
	copy(b[12:18], m.EthDst[:])
	binary.BigEndian.PutUint16(b[18:20], m.VLANID)
	b[20] = m.VLANPCP
	// b[21] pad
	binary.BigEndian.PutUint16(b[22:24], m.EthType)
	b[24] = m.IPTOS
	b[25] = m.IPProto
	// b[26:28] pad
	binary.BigEndian.PutUint32(b[28:32], uint32(m.IPSrc))
	binary.BigEndian.PutUint32(b[32:36], uint32(m.IPDst))
	binary.BigEndian.PutUint16(b[36:38], m.SrcPort)
	binary.BigEndian.PutUint16(b[38:40], m.DstPort)
	return b, nil
}

// UnmarshalBinary parses a 40-byte wire match.
func (m *Match) UnmarshalBinary(b []byte) error {
	if len(b) < MatchLen {
		return errors.Errorf("match too short: %d bytes, want %d", len(b), MatchLen)
	}
	m.Wildcards = binary.BigEndian.Uint32(b[0:4])
	m.InPort = binary.BigEndian.Uint16(b[4:6])
	copy(m.EthSrc[:], b[6:12])
	copy(m.EthDst[:], b[12:18])
	m.VLANID = binary.BigEndian.Uint16(b[18:20])
	m.VLANPCP = b[20]
	m.EthType = binary.BigEndian.Uint16(b[22:24])
	m.IPTOS = b[24]
	m.IPProto = b[25]
	m.IPSrc = flow.IPv4(binary.BigEndian.Uint32(b[28:32]))
	m.IPDst = flow.IPv4(binary.BigEndian.Uint32(b[32:36]))
	m.SrcPort = binary.BigEndian.Uint16(b[36:38])
	m.DstPort = binary.BigEndian.Uint16(b[38:40])
	return nil
}
