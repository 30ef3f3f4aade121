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
	"fmt"
	"math/bits"
	"strings"
)

// Fields is a bitset of whole-field don't-cares. IP addresses are not
// represented here; they wildcard per bit through IPMask.
type Fields uint16

const (
	FieldInPort Fields = 1 << iota
	FieldVLANID
	FieldEthSrc
	FieldEthDst
	FieldEthType
	FieldIPProto
	FieldSrcPort
	FieldDstPort
	FieldVLANPCP
	FieldIPTOS
	FieldTunID

	// FieldsAll marks every whole field as don't-care.
	FieldsAll Fields = 1<<iota - 1
)

var fieldNames = []struct {
	f    Fields
	name string
}{
	{FieldInPort, "in_port"},
	{FieldVLANID, "vlan"},
	{FieldEthSrc, "eth_src"},
	{FieldEthDst, "eth_dst"},
	{FieldEthType, "eth_type"},
	{FieldIPProto, "proto"},
	{FieldSrcPort, "tp_src"},
	{FieldDstPort, "tp_dst"},
	{FieldVLANPCP, "pcp"},
	{FieldIPTOS, "tos"},
	{FieldTunID, "tun_id"},
}

func (f Fields) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range fieldNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, ",")
}

// IPMask is an IPv4 netmask: set bits are significant, clear bits are
// don't-care. MaskExact matches the whole address, MaskAll nothing.
type IPMask uint32

const (
	MaskExact IPMask = 0xffffffff
	MaskAll   IPMask = 0
)

// MaskFromPrefix returns the mask keeping the top n bits. n outside
// [0,32] saturates.
func MaskFromPrefix(n int) IPMask {
	if n <= 0 {
		return MaskAll
	}
	if n >= 32 {
		return MaskExact
	}
	return MaskExact << (32 - n)
}

// PrefixLen returns the number of leading significant bits. It is only
// meaningful for contiguous masks, which is all this package produces.
func (m IPMask) PrefixLen() int {
	return bits.LeadingZeros32(^uint32(m))
}

// Wildcards marks which parts of a Flow are don't-care: whole fields in
// Fields, and per-bit IPv4 prefixes in SrcMask/DstMask. Two Wildcards
// are interchangeable only if they are structurally equal (==); the
// zero value is NOT meaningful, use Exact or All.
type Wildcards struct {
	Fields  Fields
	SrcMask IPMask
	DstMask IPMask
}

// Exact returns wildcards that match every field exactly.
func Exact() Wildcards {
	return Wildcards{SrcMask: MaskExact, DstMask: MaskExact}
}

// All returns wildcards under which every flow matches.
func All() Wildcards {
	return Wildcards{Fields: FieldsAll}
}

// IsExact reports whether no field or bit is wildcarded.
func (w Wildcards) IsExact() bool {
	return w == Exact()
}

// Union returns the wildcards that treat a bit as don't-care if either
// operand does.
func (w Wildcards) Union(o Wildcards) Wildcards {
	return Wildcards{
		Fields:  w.Fields | o.Fields,
		SrcMask: w.SrcMask & o.SrcMask,
		DstMask: w.DstMask & o.DstMask,
	}
}

// Mask returns f with every wildcarded bit forced to zero. Applying it
// to a rule's fields canonicalizes them; applying it to a packet flow
// yields the probe key for the table holding w.
func (w Wildcards) Mask(f Flow) Flow {
	if w.Fields&FieldInPort != 0 {
		f.InPort = 0
	}
	if w.Fields&FieldVLANID != 0 {
		f.VLANID = 0
	}
	if w.Fields&FieldEthSrc != 0 {
		f.EthSrc = MAC{}
	}
	if w.Fields&FieldEthDst != 0 {
		f.EthDst = MAC{}
	}
	if w.Fields&FieldEthType != 0 {
		f.EthType = 0
	}
	if w.Fields&FieldIPProto != 0 {
		f.IPProto = 0
	}
	if w.Fields&FieldSrcPort != 0 {
		f.SrcPort = 0
	}
	if w.Fields&FieldDstPort != 0 {
		f.DstPort = 0
	}
	if w.Fields&FieldVLANPCP != 0 {
		f.VLANPCP = 0
	}
	if w.Fields&FieldIPTOS != 0 {
		f.IPTOS = 0
	}
	if w.Fields&FieldTunID != 0 {
		f.TunID = 0
	}
	f.IPSrc &= IPv4(w.SrcMask)
	f.IPDst &= IPv4(w.DstMask)
	return f
}

func (w Wildcards) String() string {
	if w.IsExact() {
		return "exact"
	}
	var parts []string
	if w.Fields != 0 {
		parts = append(parts, w.Fields.String())
	}
	if w.SrcMask != MaskExact {
		parts = append(parts, fmt.Sprintf("ip_src/%d", w.SrcMask.PrefixLen()))
	}
	if w.DstMask != MaskExact {
		parts = append(parts, fmt.Sprintf("ip_dst/%d", w.DstMask.PrefixLen()))
	}
	return strings.Join(parts, " ")
}
