// Copyright 2026 The Protocheck Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"sort"
)

// Metadata is a set of named integer fields attached to a state.
// Fields model quantities that governance properties reason about:
// permission levels, risk tiers, remaining resource budgets.
type Metadata map[string]int64

// Clone returns an independent copy. Clone of nil is nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	clone := make(Metadata, len(m))
	for field, value := range m {
		clone[field] = value
	}
	return clone
}

// Fields returns the field names in sorted order. Deterministic
// iteration matters everywhere metadata feeds into validation
// messages, canonical encodings, or witness descriptions.
func (m Metadata) Fields() []string {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Equal reports whether both metadata sets declare the same fields
// with the same values. A nil set equals an empty set.
func (m Metadata) Equal(other Metadata) bool {
	if len(m) != len(other) {
		return false
	}
	for field, value := range m {
		otherValue, ok := other[field]
		if !ok || otherValue != value {
			return false
		}
	}
	return true
}

// Merge returns m overlaid with ctx: fields present in ctx win.
// Neither input is modified. Used to build the evaluation view a
// guard sees — the source state's metadata plus any caller-supplied
// stimulus context.
func (m Metadata) Merge(ctx Metadata) Metadata {
	if len(ctx) == 0 {
		return m
	}
	merged := m.Clone()
	if merged == nil {
		merged = make(Metadata, len(ctx))
	}
	for field, value := range ctx {
		merged[field] = value
	}
	return merged
}

// String renders the metadata as "field=value" pairs in sorted field
// order, for error messages and witness descriptions.
func (m Metadata) String() string {
	result := "{"
	for i, field := range m.Fields() {
		if i > 0 {
			result += " "
		}
		result += fmt.Sprintf("%s=%d", field, m[field])
	}
	return result + "}"
}
