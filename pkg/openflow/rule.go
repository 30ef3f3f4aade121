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

package openflow

import (
	"math"

	"github.com/pkg/errors"

	"github.com/balioune/ovs/pkg/classifier"
	"github.com/balioune/ovs/pkg/flow"
)

// Format identifies the flow translation format of a match.
type Format int

const (
	// FormatOpenFlow10 is the plain OpenFlow 1.0 format; the tunnel
	// ID is not expressible and is always wildcarded.
	FormatOpenFlow10 Format = iota
	// FormatTunIDFromCookie is the Nicira extension carrying the
	// tunnel ID in the upper 32 bits of the flow cookie, with
	// WildTunID marking it as don't-care.
	FormatTunIDFromCookie
)

// ExactPriority is the priority assigned to fully-exact rules
// regardless of the requested one; OpenFlow 1.0 defines exact-match
// entries to outrank every wildcarded entry.
const ExactPriority = math.MaxUint16

// ToRule translates a wire match into a canonical classifier rule.
// Wildcard flags outside the format's defined set are ignored, matching
// how Open vSwitch has always treated them.
func ToRule(m *Match, priority int, format Format, cookie uint64) (*classifier.Rule, error) {
	allowed := WildAll
	switch format {
	case FormatOpenFlow10:
	case FormatTunIDFromCookie:
		allowed |= WildTunID
	default:
		return nil, errors.Errorf("unknown flow format %d", format)
	}
	w := m.Wildcards & allowed

	f := flow.Flow{
		InPort:  m.InPort,
		EthSrc:  m.EthSrc,
		EthDst:  m.EthDst,
		VLANID:  m.VLANID,
		VLANPCP: m.VLANPCP,
		EthType: m.EthType,
		IPTOS:   m.IPTOS,
		IPProto: m.IPProto,
		IPSrc:   m.IPSrc,
		IPDst:   m.IPDst,
		SrcPort: m.SrcPort,
		DstPort: m.DstPort,
	}

	wc := flow.Wildcards{
		SrcMask: maskFromWire(w >> SrcShift),
		DstMask: maskFromWire(w >> DstShift),
	}
	for _, fm := range wireFields {
		if w&fm.wire != 0 {
			wc.Fields |= fm.field
		}
	}
	switch {
	case format == FormatTunIDFromCookie && w&WildTunID == 0:
		f.TunID = uint32(cookie >> 32)
	default:
		wc.Fields |= flow.FieldTunID
	}

	// A match that is exact on the wire always takes maximum
	// priority; OpenFlow 1.0 ignores the requested priority for
	// exact-match entries.
	if w == 0 {
		priority = ExactPriority
	}
	return classifier.NewRule(f, wc, priority), nil
}

// FromRule translates an installed rule back to its wire match, the
// inverse of ToRule up to the cookie-carried tunnel ID.
func FromRule(r *classifier.Rule, format Format) *Match {
	m := &Match{
		InPort:  r.Flow.InPort,
		EthSrc:  r.Flow.EthSrc,
		EthDst:  r.Flow.EthDst,
		VLANID:  r.Flow.VLANID,
		VLANPCP: r.Flow.VLANPCP,
		EthType: r.Flow.EthType,
		IPTOS:   r.Flow.IPTOS,
		IPProto: r.Flow.IPProto,
		IPSrc:   r.Flow.IPSrc,
		IPDst:   r.Flow.IPDst,
		SrcPort: r.Flow.SrcPort,
		DstPort: r.Flow.DstPort,
	}
	wc := r.Wildcards
	m.Wildcards = maskToWire(wc.SrcMask)<<SrcShift | maskToWire(wc.DstMask)<<DstShift
	for _, fm := range wireFields {
		if wc.Fields&fm.field != 0 && fm.wire != 0 {
			m.Wildcards |= fm.wire
		}
	}
	if format == FormatTunIDFromCookie && wc.Fields&flow.FieldTunID != 0 {
		m.Wildcards |= WildTunID
	}
	return m
}

var wireFields = []struct {
	wire  uint32
	field flow.Fields
}{
	{WildInPort, flow.FieldInPort},
	{WildVLANID, flow.FieldVLANID},
	{WildEthSrc, flow.FieldEthSrc},
	{WildEthDst, flow.FieldEthDst},
	{WildEthType, flow.FieldEthType},
	{WildIPProto, flow.FieldIPProto},
	{WildSrcPort, flow.FieldSrcPort},
	{WildDstPort, flow.FieldDstPort},
	{WildVLANPCP, flow.FieldVLANPCP},
	{WildIPTOS, flow.FieldIPTOS},
}

// maskFromWire converts a 6-bit count of wildcarded low-order address
// bits into a netmask; counts of 32 and up wildcard the whole address.
func maskFromWire(shifted uint32) flow.IPMask {
	n := int(shifted & 0x3f)
	return flow.MaskFromPrefix(32 - n)
}

func maskToWire(m flow.IPMask) uint32 {
	return uint32(32 - m.PrefixLen())
}
