// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenizer

import "sort"

// SpecialSet selects special tokens by their textual form. The zero
// value selects nothing. When all is set, names lists exclusions.
type SpecialSet struct {
	all   bool
	names map[string]struct{}
}

// AllSpecial selects every special token of a vocabulary.
func AllSpecial() SpecialSet {
	return SpecialSet{all: true}
}

// NoSpecial selects no special tokens.
func NoSpecial() SpecialSet {
	return SpecialSet{}
}

// Specials selects the named special tokens.
func Specials(names ...string) SpecialSet {
	set := SpecialSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		set.names[name] = struct{}{}
	}
	return set
}

// Contains reports whether name is selected.
func (set SpecialSet) Contains(name string) bool {
	_, listed := set.names[name]
	if set.all {
		return !listed
	}
	return listed
}

// Complement returns the set selecting exactly the tokens set does not.
func (set SpecialSet) Complement() SpecialSet {
	return SpecialSet{all: !set.all, names: set.names}
}

// IsAll reports whether the set selects every special token.
func (set SpecialSet) IsAll() bool {
	return set.all && len(set.names) == 0
}

// IsEmpty reports whether the set selects nothing.
func (set SpecialSet) IsEmpty() bool {
	return !set.all && len(set.names) == 0
}

// Names returns the selected tokens in sorted order. It returns nil for
// a set built from [AllSpecial], which has no finite name list.
func (set SpecialSet) Names() []string {
	if set.all || len(set.names) == 0 {
		return nil
	}
	names := make([]string, 0, len(set.names))
	for name := range set.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
