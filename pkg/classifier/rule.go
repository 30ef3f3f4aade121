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
	"fmt"

	"github.com/balioune/ovs/pkg/flow"
)

// Rule is one classification entry: full field values, the wildcards
// describing which of them are don't-care, and a priority. Larger
// priorities win among overlapping matches.
//
// Rules held by a Classifier must be canonical: every wildcarded bit of
// Flow is zero. NewRule and Normalize maintain this; a caller that
// mutates Flow or Wildcards of an installed rule breaks the index. The
// Classifier manages only a rule's membership in the index, never the
// rest of whatever struct the caller embeds it in, so a *Rule returned
// from a lookup can be mapped back to its containing record by the
// caller.
type Rule struct {
	Flow      flow.Flow
	Wildcards flow.Wildcards
	Priority  int

	// tbl is the table currently holding the rule, nil when the rule
	// is not installed. Used to skip detached rules during traversal.
	tbl *table
}

// NewRule builds a canonical rule from fully-specified fields, zeroing
// every bit that wc marks as don't-care.
func NewRule(f flow.Flow, wc flow.Wildcards, priority int) *Rule {
	return &Rule{
		Flow:      wc.Mask(f),
		Wildcards: wc,
		Priority:  priority,
	}
}

// Normalize re-zeroes wildcarded bits of the rule's fields. Callers
// that widen Wildcards of an uninstalled rule in place must call it
// before handing the rule back to a Classifier.
func (r *Rule) Normalize() {
	r.Flow = r.Wildcards.Mask(r.Flow)
}

// Matches reports whether a concrete packet flow satisfies the rule.
func (r *Rule) Matches(f flow.Flow) bool {
	return r.Wildcards.Mask(f) == r.Flow
}

// Overlaps reports whether some packet flow could match both r and o:
// on every bit wildcarded by neither rule, the field values agree.
// Symmetric; priorities are irrelevant.
func (r *Rule) Overlaps(o *Rule) bool {
	u := r.Wildcards.Union(o.Wildcards)
	return u.Mask(r.Flow) == u.Mask(o.Flow)
}

// SameIdentity reports whether o occupies the same logical slot:
// identical fields and identical wildcards, at any priority. Inserting
// a rule displaces an installed rule with the same identity.
func (r *Rule) SameIdentity(o *Rule) bool {
	return r.Flow == o.Flow && r.Wildcards == o.Wildcards
}

// Equal reports full structural equality, priority included.
func (r *Rule) Equal(o *Rule) bool {
	return r.SameIdentity(o) && r.Priority == o.Priority
}

// Installed reports whether the rule is currently held by a Classifier.
func (r *Rule) Installed() bool {
	return r.tbl != nil
}

func (r *Rule) String() string {
	return fmt.Sprintf("priority=%d wildcards={%s} %s", r.Priority, r.Wildcards, r.Flow)
}
