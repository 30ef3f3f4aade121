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

package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/balioune/ovs/pkg/flow"
)

func TestMaskFromPrefix(t *testing.T) {
	assert.Equal(t, flow.MaskAll, flow.MaskFromPrefix(0))
	assert.Equal(t, flow.MaskAll, flow.MaskFromPrefix(-3))
	assert.Equal(t, flow.IPMask(0xff000000), flow.MaskFromPrefix(8))
	assert.Equal(t, flow.IPMask(0xfffffffe), flow.MaskFromPrefix(31))
	assert.Equal(t, flow.MaskExact, flow.MaskFromPrefix(32))
	assert.Equal(t, flow.MaskExact, flow.MaskFromPrefix(40))

	for _, n := range []int{0, 1, 8, 16, 24, 31, 32} {
		assert.Equal(t, n, flow.MaskFromPrefix(n).PrefixLen(), "n=%d", n)
	}
}

func TestWildcardsExactAndAll(t *testing.T) {
	assert.True(t, flow.Exact().IsExact())
	assert.False(t, flow.All().IsExact())

	partial := flow.Exact()
	partial.SrcMask = flow.MaskFromPrefix(24)
	assert.False(t, partial.IsExact())

	f := flow.Flow{InPort: 7, DstPort: 80, IPSrc: 0x0a0a0a0a}
	assert.Equal(t, f, flow.Exact().Mask(f))
	assert.Equal(t, flow.Flow{}, flow.All().Mask(f))
}

func TestWildcardsMask(t *testing.T) {
	f := flow.Flow{
		TunID:   9,
		InPort:  7,
		VLANID:  12,
		VLANPCP: 3,
		EthSrc:  flow.MAC{1, 2, 3, 4, 5, 6},
		EthDst:  flow.MAC{6, 5, 4, 3, 2, 1},
		EthType: flow.EthTypeIPv4,
		IPSrc:   0x0a0b0c0d,
		IPDst:   0x0a0b0c0e,
		IPProto: flow.ProtoUDP,
		IPTOS:   0x10,
		SrcPort: 1234,
		DstPort: 53,
	}

	wc := flow.Exact()
	wc.Fields = flow.FieldInPort | flow.FieldEthSrc | flow.FieldTunID
	wc.DstMask = flow.MaskFromPrefix(16)

	got := wc.Mask(f)
	assert.Zero(t, got.InPort)
	assert.Zero(t, got.EthSrc)
	assert.Zero(t, got.TunID)
	assert.Equal(t, flow.IPv4(0x0a0b0000), got.IPDst)
	// Untouched fields survive.
	assert.Equal(t, f.IPSrc, got.IPSrc)
	assert.Equal(t, f.DstPort, got.DstPort)
	assert.Equal(t, f.EthDst, got.EthDst)

	// Masking is idempotent.
	assert.Equal(t, got, wc.Mask(got))
}

func TestWildcardsUnion(t *testing.T) {
	a := flow.Exact()
	a.Fields = flow.FieldInPort
	a.SrcMask = flow.MaskFromPrefix(8)

	b := flow.Exact()
	b.Fields = flow.FieldDstPort
	b.SrcMask = flow.MaskFromPrefix(16)

	u := a.Union(b)
	assert.Equal(t, flow.FieldInPort|flow.FieldDstPort, u.Fields)
	assert.Equal(t, flow.MaskFromPrefix(8), u.SrcMask)
	assert.Equal(t, flow.MaskExact, u.DstMask)
	assert.Equal(t, u, b.Union(a))
}

func TestWildcardsString(t *testing.T) {
	assert.Equal(t, "exact", flow.Exact().String())

	wc := flow.Exact()
	wc.Fields = flow.FieldInPort | flow.FieldVLANID
	wc.DstMask = flow.MaskFromPrefix(8)
	s := wc.String()
	assert.Contains(t, s, "in_port")
	assert.Contains(t, s, "vlan")
	assert.Contains(t, s, "ip_dst/8")
}
