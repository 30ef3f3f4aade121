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

package openflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balioune/ovs/pkg/flow"
	"github.com/balioune/ovs/pkg/openflow"
)

func TestToRuleWildcards(t *testing.T) {
	m := &openflow.Match{
		// in_port and VLAN wild, nw_src/16, nw_dst exact.
		Wildcards: openflow.WildInPort | openflow.WildVLANID | openflow.WildVLANPCP |
			16<<openflow.SrcShift,
		InPort:  99, // garbage behind a wildcard
		EthSrc:  flow.MAC{0x02, 0, 0, 0, 0, 0x01},
		EthDst:  flow.MAC{0x02, 0, 0, 0, 0, 0x02},
		EthType: flow.EthTypeIPv4,
		IPProto: flow.ProtoTCP,
		IPSrc:   0x0a0bffff, // low bits behind the /16 mask
		IPDst:   0xc0000201,
		DstPort: 443,
	}

	r, err := openflow.ToRule(m, 50, openflow.FormatOpenFlow10, 0)
	require.NoError(t, err)

	assert.Equal(t, 50, r.Priority)
	assert.Equal(t, flow.MaskFromPrefix(16), r.Wildcards.SrcMask)
	assert.Equal(t, flow.MaskExact, r.Wildcards.DstMask)
	assert.Equal(t,
		flow.FieldInPort|flow.FieldVLANID|flow.FieldVLANPCP|flow.FieldTunID,
		r.Wildcards.Fields)

	// The canonicalization invariant: wildcarded bits are zeroed.
	assert.Zero(t, r.Flow.InPort)
	assert.Equal(t, flow.IPv4(0x0a0b0000), r.Flow.IPSrc)
	assert.Equal(t, r.Wildcards.Mask(r.Flow), r.Flow)
}

func TestToRuleFullyWild(t *testing.T) {
	m := &openflow.Match{
		Wildcards: openflow.WildAll,
		// Every field is garbage and must be zeroed.
		InPort: 1, VLANID: 2, EthType: 3, IPProto: 4, SrcPort: 5, DstPort: 6,
		IPSrc: 7, IPDst: 8,
	}
	r, err := openflow.ToRule(m, 1, openflow.FormatOpenFlow10, 0)
	require.NoError(t, err)
	assert.Equal(t, flow.All(), r.Wildcards)
	assert.Equal(t, flow.Flow{}, r.Flow)
	assert.Equal(t, 1, r.Priority)
}

func TestToRuleExactPinsPriority(t *testing.T) {
	m := &openflow.Match{EthType: flow.EthTypeIPv4, IPProto: flow.ProtoTCP, DstPort: 80}

	r, err := openflow.ToRule(m, 5, openflow.FormatOpenFlow10, 0)
	require.NoError(t, err)
	assert.Equal(t, openflow.ExactPriority, r.Priority)
	// Plain OpenFlow 1.0 cannot express the tunnel ID; it stays
	// wildcarded even on a wire-exact match.
	assert.Equal(t, flow.FieldTunID, r.Wildcards.Fields)
}

func TestToRuleTunIDFromCookie(t *testing.T) {
	m := &openflow.Match{EthType: flow.EthTypeIPv4}

	r, err := openflow.ToRule(m, 5, openflow.FormatTunIDFromCookie, 0xdeadbeef_00000001)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), r.Flow.TunID)
	assert.True(t, r.Wildcards.IsExact())
	assert.Equal(t, openflow.ExactPriority, r.Priority)

	m.Wildcards = openflow.WildTunID
	r, err = openflow.ToRule(m, 5, openflow.FormatTunIDFromCookie, 0xdeadbeef_00000001)
	require.NoError(t, err)
	assert.Zero(t, r.Flow.TunID)
	assert.Equal(t, flow.FieldTunID, r.Wildcards.Fields)
	assert.Equal(t, 5, r.Priority)

	// Plain OpenFlow 1.0 ignores the extension flag and the cookie.
	r, err = openflow.ToRule(m, 5, openflow.FormatOpenFlow10, 0xdeadbeef_00000001)
	require.NoError(t, err)
	assert.Zero(t, r.Flow.TunID)
	assert.Equal(t, flow.FieldTunID, r.Wildcards.Fields)
}

func TestToRuleUnknownFormat(t *testing.T) {
	_, err := openflow.ToRule(&openflow.Match{}, 1, openflow.Format(42), 0)
	assert.Error(t, err)
}

func TestFromRuleRoundTrip(t *testing.T) {
	m := &openflow.Match{
		Wildcards: openflow.WildInPort | openflow.WildIPTOS |
			8<<openflow.SrcShift | 24<<openflow.DstShift,
		EthSrc:  flow.MAC{0x02, 0, 0, 0, 0, 0x01},
		EthDst:  flow.MAC{0x02, 0, 0, 0, 0, 0x02},
		VLANID:  100,
		EthType: flow.EthTypeIPv4,
		IPProto: flow.ProtoUDP,
		IPSrc:   0x0a000000,
		IPDst:   0xc0000000,
		SrcPort: 5353,
		DstPort: 53,
	}
	r, err := openflow.ToRule(m, 10, openflow.FormatOpenFlow10, 0)
	require.NoError(t, err)

	back := openflow.FromRule(r, openflow.FormatOpenFlow10)
	assert.Equal(t, m.Wildcards, back.Wildcards&openflow.WildAll)
	assert.Equal(t, m.InPort, back.InPort) // zeroed behind the wildcard either way
	assert.Equal(t, m.VLANID, back.VLANID)
	assert.Equal(t, m.IPSrc, back.IPSrc)
	assert.Equal(t, m.IPDst, back.IPDst)
	assert.Equal(t, m.DstPort, back.DstPort)

	// With the cookie format, a wildcarded tunnel ID surfaces as the
	// extension flag.
	back = openflow.FromRule(r, openflow.FormatTunIDFromCookie)
	assert.NotZero(t, back.Wildcards&openflow.WildTunID)
}
