package conflict

// Authorities is the set of identities allowed to create and resolve
// conflicts.
type Authorities map[Identity]struct{}

func NewAuthorities(ids ...Identity) Authorities {
	a := make(Authorities, len(ids))
	for _, id := range ids {
		a[id] = struct{}{}
	}
	return a
}

func (a Authorities) Contains(id Identity) bool {
	_, ok := a[id]
	return ok
}
