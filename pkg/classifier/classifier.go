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

// Package classifier implements a multi-field packet classifier: a
// two-level index that maps a wildcard pattern to a table of rules and,
// within each table, masked field values to priority-ordered rule
// chains. Lookup cost scales with the number of distinct wildcard
// patterns in use, not with the number of installed rules.
//
// The Classifier does no internal locking. Callers must serialize
// structural mutation against concurrent use from other goroutines;
// concurrent lookups without mutation are safe. Traversals are safe
// against same-goroutine mutation from within the visitor.
package classifier

import (
	"github.com/balioune/ovs/pkg/flow"
)

// Include selects which tables an operation considers.
type Include int

const (
	// IncludeExact selects only the table without any wildcards.
	IncludeExact Include = 1 << iota
	// IncludeWild selects every table with at least one wildcard.
	IncludeWild

	IncludeAll = IncludeExact | IncludeWild
)

func (inc Include) covers(t *table) bool {
	if t.wc.IsExact() {
		return inc&IncludeExact != 0
	}
	return inc&IncludeWild != 0
}

// Classifier is the top-level index over all tables. The zero value is
// not usable; construct with New.
type Classifier struct {
	tables map[flow.Wildcards]*table
	exact  *table
	n      int

	// nextSeq numbers tables by creation. On equal-priority matches
	// from different tables, Lookup prefers the earliest-created
	// table; this keeps results independent of map iteration order.
	nextSeq uint64
}

// New returns an empty classifier.
func New() *Classifier {
	return &Classifier{tables: make(map[flow.Wildcards]*table)}
}

// Count returns the number of installed rules.
func (c *Classifier) Count() int {
	return c.n
}

// CountExact returns the number of installed rules without wildcards.
func (c *Classifier) CountExact() int {
	if c.exact == nil {
		return 0
	}
	return c.exact.n
}

// Empty reports whether no rules are installed.
func (c *Classifier) Empty() bool {
	return c.n == 0
}

func (c *Classifier) table(wc flow.Wildcards) *table {
	t, ok := c.tables[wc]
	if !ok {
		t = newTable(wc, c.nextSeq)
		c.nextSeq++
		c.tables[wc] = t
		if wc.IsExact() {
			c.exact = t
		}
	}
	return t
}

// maybeDestroy unlinks a table that is both empty and unreferenced.
func (c *Classifier) maybeDestroy(t *table) {
	if t.n > 0 || t.refs > 0 {
		return
	}
	// A traversal may have kept t alive past its replacement; only
	// unlink t if it is still the table installed for its wildcards.
	if cur, ok := c.tables[t.wc]; ok && cur == t {
		delete(c.tables, t.wc)
		if t == c.exact {
			c.exact = nil
		}
	}
}

// Insert installs r, creating the table for its wildcards on first use.
// If a rule with identical fields and wildcards is already installed it
// is detached and returned, and the total count is unchanged; otherwise
// Insert returns nil. The caller owns the displaced rule. r must be
// canonical (see NewRule) and not currently installed.
func (c *Classifier) Insert(r *Rule) *Rule {
	displaced := c.table(r.Wildcards).insert(r)
	if displaced == nil {
		c.n++
	}
	return displaced
}

// InsertExact is Insert for rules without any wildcards. It skips the
// generic table dispatch and goes straight to the exact-match table;
// intended for high-volume exact-match flow setup. Panics if r has
// wildcards.
func (c *Classifier) InsertExact(r *Rule) *Rule {
	if !r.Wildcards.IsExact() {
		panic("classifier: InsertExact called with a wildcarded rule")
	}
	t := c.exact
	if t == nil {
		t = c.table(r.Wildcards)
	}
	displaced := t.insert(r)
	if displaced == nil {
		c.n++
	}
	return displaced
}

// Remove detaches an installed rule from the index. The rule itself is
// untouched and remains owned by the caller. Removing a rule that is
// not installed is a no-op.
func (c *Classifier) Remove(r *Rule) {
	t := r.tbl
	if t == nil {
		return
	}
	t.remove(r)
	c.n--
	c.maybeDestroy(t)
}

// Lookup returns the highest-priority installed rule matching the
// packet flow f among the tables selected by inc, or nil if none
// matches. Each candidate table costs one masked map probe. When two
// tables yield matches of equal priority, the rule from the
// earliest-created table wins.
func (c *Classifier) Lookup(f flow.Flow, inc Include) *Rule {
	if inc == IncludeExact {
		if c.exact == nil {
			return nil
		}
		return c.exact.lookup(f)
	}

	var best *Rule
	var bestSeq uint64
	for _, t := range c.tables {
		if !inc.covers(t) {
			continue
		}
		r := t.lookup(f)
		if r == nil {
			continue
		}
		if best == nil || r.Priority > best.Priority ||
			(r.Priority == best.Priority && t.seq < bestSeq) {
			best = r
			bestSeq = t.seq
		}
	}
	return best
}

// FindExact returns the installed rule with fields, wildcards and
// priority all identical to r's, or nil. This is an identity lookup,
// not a packet match; it answers "is this exact rule installed".
func (c *Classifier) FindExact(r *Rule) *Rule {
	t, ok := c.tables[r.Wildcards]
	if !ok {
		return nil
	}
	return t.find(r)
}

// HasOverlap reports whether some installed rule in the selected tables
// has the same priority as r and overlaps it, the check OpenFlow's
// CHECK_OVERLAP flag asks for before installation. Insert itself never
// rejects overlapping rules.
func (c *Classifier) HasOverlap(r *Rule, inc Include) bool {
	for _, t := range c.tables {
		if !inc.covers(t) {
			continue
		}
		for _, chain := range t.rules {
			for _, old := range chain {
				if old.Priority == r.Priority && old.Overlaps(r) {
					return true
				}
			}
		}
	}
	return false
}

// ForEach visits every installed rule in the selected tables. The
// visitor may insert and remove rules, including the one being visited:
// rules it removes are not visited afterwards, rules it inserts may or
// may not be visited, and a table the visitor empties stays alive until
// the traversal leaves it. Visit order is unspecified.
func (c *Classifier) ForEach(inc Include, visit func(*Rule)) {
	c.forEach(inc, nil, visit)
}

// ForEachMatching is ForEach restricted to rules overlapping probe,
// exactly the candidate set a Lookup for any flow matching probe would
// consider.
func (c *Classifier) ForEachMatching(probe *Rule, inc Include, visit func(*Rule)) {
	c.forEach(inc, probe, visit)
}

func (c *Classifier) forEach(inc Include, probe *Rule, visit func(*Rule)) {
	selected := make([]*table, 0, len(c.tables))
	for _, t := range c.tables {
		if inc.covers(t) {
			selected = append(selected, t)
		}
	}
	for _, t := range selected {
		t.refs++
		for _, r := range t.snapshot() {
			if r.tbl != t {
				// Detached by the visitor.
				continue
			}
			if probe == nil || probe.Overlaps(r) {
				visit(r)
			}
		}
		t.refs--
		c.maybeDestroy(t)
	}
}
