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

package classifier

import (
	"github.com/balioune/ovs/pkg/flow"
)

// table indexes all rules sharing one exact Wildcards value. Rules are
// bucketed by their canonical fields; each bucket is a chain sorted by
// descending priority, so the chain head is the bucket's best match.
type table struct {
	wc    flow.Wildcards
	rules map[flow.Flow][]*Rule
	n     int

	// seq orders tables by creation for the lookup tie-break.
	seq uint64

	// refs counts in-progress traversals. A logically empty table is
	// unlinked from the classifier only once refs drops to zero, so a
	// visitor that empties the table it is walking cannot pull it out
	// from under the traversal.
	refs int
}

func newTable(wc flow.Wildcards, seq uint64) *table {
	return &table{
		wc:    wc,
		rules: make(map[flow.Flow][]*Rule),
		seq:   seq,
	}
}

// insert adds r to the table and returns the rule it displaced, if any.
// A rule with identical fields and wildcards, at any priority, gives up
// its slot to r; otherwise r joins its bucket chain in descending
// priority order.
func (t *table) insert(r *Rule) *Rule {
	chain := t.rules[r.Flow]

	var displaced *Rule
	for i, old := range chain {
		if old.SameIdentity(r) {
			displaced = old
			displaced.tbl = nil
			chain = append(chain[:i], chain[i+1:]...)
			break
		}
	}

	pos := len(chain)
	for i, old := range chain {
		if r.Priority > old.Priority {
			pos = i
			break
		}
	}
	chain = append(chain, nil)
	copy(chain[pos+1:], chain[pos:])
	chain[pos] = r
	t.rules[r.Flow] = chain

	r.tbl = t
	if displaced == nil {
		t.n++
	}
	return displaced
}

// remove detaches r from its bucket chain, dropping the bucket when the
// chain empties. The caller checks for table destruction.
func (t *table) remove(r *Rule) {
	chain := t.rules[r.Flow]
	for i, old := range chain {
		if old == r {
			chain = append(chain[:i], chain[i+1:]...)
			break
		}
	}
	if len(chain) == 0 {
		delete(t.rules, r.Flow)
	} else {
		t.rules[r.Flow] = chain
	}
	r.tbl = nil
	t.n--
}

// find returns the installed rule structurally equal to r, or nil.
func (t *table) find(r *Rule) *Rule {
	for _, old := range t.rules[r.Flow] {
		if old.Priority == r.Priority && old.SameIdentity(r) {
			return old
		}
	}
	return nil
}

// lookup probes the table with a concrete packet flow and returns the
// highest-priority rule matching it, or nil. One masked map probe; the
// chain head is by construction the bucket's best.
func (t *table) lookup(f flow.Flow) *Rule {
	if chain := t.rules[t.wc.Mask(f)]; len(chain) > 0 {
		return chain[0]
	}
	return nil
}

// snapshot returns the table's rules as a flat slice. Traversals visit
// the snapshot so that visitor-driven mutation cannot upset map
// iteration; detached rules are filtered at visit time.
func (t *table) snapshot() []*Rule {
	out := make([]*Rule, 0, t.n)
	for _, chain := range t.rules {
		out = append(out, chain...)
	}
	return out
}
