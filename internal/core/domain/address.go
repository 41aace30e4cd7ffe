package domain

import "strings"

// Address is an encoded ledger address as shown to the user.
type Address string

func (a Address) String() string {
	return string(a)
}

// AddressSet is an ordered, duplicate-free list of addresses.
type AddressSet []Address

// NewAddressSet builds a set preserving first-seen order. Empty entries are dropped.
func NewAddressSet(addrs ...Address) AddressSet {
	seen := make(map[Address]struct{}, len(addrs))
	set := make(AddressSet, 0, len(addrs))
	for _, a := range addrs {
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		set = append(set, a)
	}
	return set
}

// ResolveAddressSet decides which addresses a profile queries.
// When the connected wallet exposes a list that contains primary, the whole
// list is used. Otherwise only primary is queried.
func ResolveAddressSet(primary Address, list []Address) AddressSet {
	for _, a := range list {
		if a == primary && a != "" {
			return NewAddressSet(list...)
		}
	}
	return NewAddressSet(primary)
}

// Contains reports whether a is part of the set.
func (s AddressSet) Contains(a Address) bool {
	for _, x := range s {
		if x == a {
			return true
		}
	}
	return false
}

// Primary returns the first address or "" for an empty set.
func (s AddressSet) Primary() Address {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Key is a stable comparable form of the set, usable inside query keys.
func (s AddressSet) Key() string {
	parts := make([]string, len(s))
	for i, a := range s {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

// ParseAddressSetKey reverses Key.
func ParseAddressSetKey(key string) AddressSet {
	if key == "" {
		return AddressSet{}
	}
	parts := strings.Split(key, ",")
	addrs := make([]Address, len(parts))
	for i, p := range parts {
		addrs[i] = Address(p)
	}
	return NewAddressSet(addrs...)
}

// Strings converts the set for transports that want plain strings.
func (s AddressSet) Strings() []string {
	out := make([]string, len(s))
	for i, a := range s {
		out[i] = string(a)
	}
	return out
}
