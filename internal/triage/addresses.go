package triage

import (
	gosync "sync"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/nhle/inbox-triage/internal/model"
)

// AddressSet is a set of normalized organization email addresses.
type AddressSet map[string]struct{}

// NewAddressSet builds the organization set from the current user and
// every team member with their aliases. Blank entries are skipped.
func NewAddressSet(actor string, members []model.Member) AddressSet {
	set := make(AddressSet)
	set.add(actor)
	for _, m := range members {
		set.add(m.Email)
		for _, alias := range m.Aliases {
			set.add(alias)
		}
	}
	return set
}

func (s AddressSet) add(addr string) {
	if n := model.NormalizeAddress(addr); n != "" {
		s[n] = struct{}{}
	}
}

// Contains reports whether addr (normalized) is in the set.
func (s AddressSet) Contains(addr string) bool {
	n := model.NormalizeAddress(addr)
	if n == "" {
		return false
	}
	_, ok := s[n]
	return ok
}

// AddressBook memoizes the organization address set. The set is rebuilt
// only when the actor or member list changes.
type AddressBook struct {
	mu          gosync.Mutex
	fingerprint uint64
	valid       bool
	set         AddressSet
}

type addressBookKey struct {
	Actor   string
	Members []model.Member
}

// Set returns the organization set for actor and members, reusing the
// previous result when the inputs are unchanged.
func (b *AddressBook) Set(actor string, members []model.Member) AddressSet {
	b.mu.Lock()
	defer b.mu.Unlock()

	fp, err := hashstructure.Hash(addressBookKey{Actor: actor, Members: members}, hashstructure.FormatV2, nil)
	if err == nil && b.valid && fp == b.fingerprint {
		return b.set
	}

	b.set = NewAddressSet(actor, members)
	b.fingerprint = fp
	b.valid = err == nil
	return b.set
}
