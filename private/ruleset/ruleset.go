// Copyright 2026 Balioune Networks
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

// Package ruleset loads classifier rules from declarative TOML files.
// Every field of a rule entry is optional; an absent field is
// wildcarded. IP addresses take an optional prefix length for partial
// wildcarding.
//
//	[[rule]]
//	priority = 100
//	ip_dst = "10.0.0.0/8"
//	ip_proto = 6
//	dst_port = 80
package ruleset

import (
	"net"
	"net/netip"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/balioune/ovs/pkg/classifier"
	"github.com/balioune/ovs/pkg/flow"
)

// File is the top-level TOML document.
type File struct {
	Rules []Entry `toml:"rule"`
}

// Entry is one declarative rule. Nil pointers mean "wildcarded".
type Entry struct {
	Priority int     `toml:"priority"`
	InPort   *uint16 `toml:"in_port"`
	EthSrc   *string `toml:"eth_src"`
	EthDst   *string `toml:"eth_dst"`
	VLANID   *uint16 `toml:"vlan_id"`
	VLANPCP  *uint8  `toml:"vlan_pcp"`
	EthType  *uint16 `toml:"eth_type"`
	IPSrc    *string `toml:"ip_src"`
	IPDst    *string `toml:"ip_dst"`
	IPProto  *uint8  `toml:"ip_proto"`
	IPTOS    *uint8  `toml:"ip_tos"`
	SrcPort  *uint16 `toml:"src_port"`
	DstPort  *uint16 `toml:"dst_port"`
	TunID    *uint32 `toml:"tun_id"`
}

// Load reads and parses a rule file.
func Load(path string) ([]*classifier.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading rule file")
	}
	rules, err := Parse(raw)
	return rules, errors.Wrapf(err, "parsing %s", path)
}

// Parse parses a TOML document into canonical rules.
func Parse(raw []byte) ([]*classifier.Rule, error) {
	var file File
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "decoding TOML")
	}
	rules := make([]*classifier.Rule, 0, len(file.Rules))
	for i := range file.Rules {
		r, err := file.Rules[i].Rule()
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d", i)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Rule converts the entry to a canonical classifier rule.
func (e *Entry) Rule() (*classifier.Rule, error) {
	var f flow.Flow
	wc := flow.All()

	set := func(field flow.Fields, apply func()) {
		wc.Fields &^= field
		apply()
	}
	if e.InPort != nil {
		set(flow.FieldInPort, func() { f.InPort = *e.InPort })
	}
	if e.VLANID != nil {
		set(flow.FieldVLANID, func() { f.VLANID = *e.VLANID })
	}
	if e.VLANPCP != nil {
		set(flow.FieldVLANPCP, func() { f.VLANPCP = *e.VLANPCP })
	}
	if e.EthType != nil {
		set(flow.FieldEthType, func() { f.EthType = *e.EthType })
	}
	if e.IPProto != nil {
		set(flow.FieldIPProto, func() { f.IPProto = *e.IPProto })
	}
	if e.IPTOS != nil {
		set(flow.FieldIPTOS, func() { f.IPTOS = *e.IPTOS })
	}
	if e.SrcPort != nil {
		set(flow.FieldSrcPort, func() { f.SrcPort = *e.SrcPort })
	}
	if e.DstPort != nil {
		set(flow.FieldDstPort, func() { f.DstPort = *e.DstPort })
	}
	if e.TunID != nil {
		set(flow.FieldTunID, func() { f.TunID = *e.TunID })
	}
	if e.EthSrc != nil {
		mac, err := parseMAC(*e.EthSrc)
		if err != nil {
			return nil, errors.Wrap(err, "eth_src")
		}
		set(flow.FieldEthSrc, func() { f.EthSrc = mac })
	}
	if e.EthDst != nil {
		mac, err := parseMAC(*e.EthDst)
		if err != nil {
			return nil, errors.Wrap(err, "eth_dst")
		}
		set(flow.FieldEthDst, func() { f.EthDst = mac })
	}
	if e.IPSrc != nil {
		ip, mask, err := parseIPv4(*e.IPSrc)
		if err != nil {
			return nil, errors.Wrap(err, "ip_src")
		}
		f.IPSrc, wc.SrcMask = ip, mask
	}
	if e.IPDst != nil {
		ip, mask, err := parseIPv4(*e.IPDst)
		if err != nil {
			return nil, errors.Wrap(err, "ip_dst")
		}
		f.IPDst, wc.DstMask = ip, mask
	}

	return classifier.NewRule(f, wc, e.Priority), nil
}

func parseMAC(s string) (flow.MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return flow.MAC{}, err
	}
	if len(hw) != flow.EthAddrLen {
		return flow.MAC{}, errors.Errorf("not an Ethernet address: %s", s)
	}
	var mac flow.MAC
	copy(mac[:], hw)
	return mac, nil
}

// parseIPv4 accepts a plain address ("10.0.0.1", exact) or a CIDR
// prefix ("10.0.0.0/8", partially wildcarded).
func parseIPv4(s string) (flow.IPv4, flow.IPMask, error) {
	if pfx, err := netip.ParsePrefix(s); err == nil {
		if !pfx.Addr().Is4() {
			return 0, 0, errors.Errorf("not IPv4: %s", s)
		}
		return flow.IPv4FromAddr(pfx.Addr()), flow.MaskFromPrefix(pfx.Bits()), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0, 0, errors.Wrap(err, "parsing address")
	}
	if !addr.Is4() {
		return 0, 0, errors.Errorf("not IPv4: %s", s)
	}
	return flow.IPv4FromAddr(addr), flow.MaskExact, nil
}
