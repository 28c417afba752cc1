package sx

import "fmt"

// NetworkMode is one of the three network postures a Policy can take.
type NetworkMode string

const (
	NetworkOffline   NetworkMode = "offline"
	NetworkLocalhost NetworkMode = "localhost"
	NetworkOnline    NetworkMode = "online"
)

// orderedSet is a deduplicated, insertion-order-preserving string set.
// Path sets and env.pass/env.deny lists in both Policy and Fragment use
// this so merge output ordering never depends on Go map iteration order.
type orderedSet struct {
	order []string
	seen  map[string]bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func orderedSetFrom(items []string) *orderedSet {
	s := newOrderedSet()
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts v if not already present. Returns true if v was newly added.
func (s *orderedSet) Add(v string) bool {
	if s.seen[v] {
		return false
	}
	s.seen[v] = true
	s.order = append(s.order, v)
	return true
}

func (s *orderedSet) Has(v string) bool { return s.seen[v] }

func (s *orderedSet) Remove(v string) {
	if !s.seen[v] {
		return
	}
	delete(s.seen, v)
	for i, x := range s.order {
		if x == v {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Union adds every element of other, preserving other's insertion order
// after s's existing elements.
func (s *orderedSet) Union(other *orderedSet) {
	if other == nil {
		return
	}
	for _, v := range other.order {
		s.Add(v)
	}
}

func (s *orderedSet) Slice() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *orderedSet) Clone() *orderedSet {
	c := newOrderedSet()
	c.order = append([]string(nil), s.order...)
	for k := range s.seen {
		c.seen[k] = true
	}
	return c
}

// fsRules holds the three filesystem path sets shared by Policy and
// Fragment.
type fsRules struct {
	AllowRead  *orderedSet
	AllowWrite *orderedSet
	DenyRead   *orderedSet
}

func newFSRules() fsRules {
	return fsRules{AllowRead: newOrderedSet(), AllowWrite: newOrderedSet(), DenyRead: newOrderedSet()}
}

func (f fsRules) clone() fsRules {
	return fsRules{AllowRead: f.AllowRead.Clone(), AllowWrite: f.AllowWrite.Clone(), DenyRead: f.DenyRead.Clone()}
}

// envRules holds the env.pass / env.deny / env.set fields shared by
// Policy and Fragment.
type envRules struct {
	Pass *orderedSet
	Deny *orderedSet
	Set  map[string]string
}

func newEnvRules() envRules {
	return envRules{Pass: newOrderedSet(), Deny: newOrderedSet(), Set: make(map[string]string)}
}

func (e envRules) clone() envRules {
	set := make(map[string]string, len(e.Set))
	for k, v := range e.Set {
		set[k] = v
	}
	return envRules{Pass: e.Pass.Clone(), Deny: e.Deny.Clone(), Set: set}
}

// Fragment is the additive, optional-fields shape contributed by a
// profile, a config file, or command-line flags. Fragments never carry a
// WorkingDir — that field exists only on the final Policy.
type Fragment struct {
	FS          fsRules
	NetworkMode *NetworkMode // nil means "not specified by this layer"
	Env         envRules
	RawRules    []string
	InheritBase *bool
}

// NewFragment returns an empty, ready-to-populate Fragment.
func NewFragment() *Fragment {
	return &Fragment{FS: newFSRules(), Env: newEnvRules()}
}

// Policy is the immutable value produced by the merge engine (C5) and
// consumed by the Seatbelt emitter (C6) and launcher (C7).
type Policy struct {
	WorkingDir  string
	HomeDir     string
	FS          fsRules
	NetworkMode NetworkMode
	Env         envRules
	RawRules    []string
	InheritBase bool
	Shell       string

	// Warnings collects non-fatal diagnostics accumulated during merge,
	// such as an allow rule inside the hard-deny set that was dropped.
	Warnings []string
}

// newPolicy returns a Policy seeded with the hard-coded defaults from
// spec.md §4.5 step 1: network = offline, empty sets.
func newPolicy(workingDir, homeDir string) *Policy {
	return &Policy{
		WorkingDir:  workingDir,
		HomeDir:     homeDir,
		FS:          newFSRules(),
		NetworkMode: NetworkOffline,
		Env:         newEnvRules(),
		InheritBase: true,
	}
}

// Clone returns a deep copy of p, so callers may mutate further layers
// without aliasing the original.
func (p *Policy) Clone() *Policy {
	c := *p
	c.FS = p.FS.clone()
	c.Env = p.Env.clone()
	c.RawRules = append([]string(nil), p.RawRules...)
	c.Warnings = append([]string(nil), p.Warnings...)
	return &c
}

func (p *Policy) warn(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}
