// Package resource orders resources so that capability providers precede
// the resources that require them.
package resource

// Capability is something a resource offers: a namespace plus the
// attributes a requirement's filter matches against.
type Capability struct {
	Namespace  string
	Attributes map[string]interface{}
}

// Requirement is something a resource needs: a namespace and an optional
// filter over provider attributes. An empty filter matches every
// capability in the namespace.
type Requirement struct {
	Namespace string
	Filter    string
}

// Resource is a unit with declared capabilities and requirements.
type Resource interface {
	Capabilities() []Capability
	Requirements() []Requirement
}

type capEntry struct {
	attrs map[string]interface{}
	owner int
}

// Sort reorders resources so every provider precedes its dependents,
// breaking ties by input order. Cycles are tolerated: a resource reached
// again while in progress is skipped, yielding a stable depth-first
// post-order for cyclic components.
func Sort(resources []Resource) ([]Resource, error) {
	// Per-namespace capability index over the universe.
	index := make(map[string][]capEntry)
	for i, r := range resources {
		for _, c := range r.Capabilities() {
			index[c.Namespace] = append(index[c.Namespace], capEntry{attrs: c.Attributes, owner: i})
		}
	}

	// Precompile filters so a malformed one fails the whole sort rather
	// than silently matching nothing.
	filters := make([][]Filter, len(resources))
	for i, r := range resources {
		for _, req := range r.Requirements() {
			f, err := ParseFilter(req.Filter)
			if err != nil {
				return nil, err
			}
			filters[i] = append(filters[i], f)
		}
	}

	visited := make([]bool, len(resources))
	out := make([]Resource, 0, len(resources))

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for ri, req := range resources[i].Requirements() {
			for _, entry := range index[req.Namespace] {
				if filters[i][ri].Matches(entry.attrs) {
					visit(entry.owner)
				}
			}
		}
		out = append(out, resources[i])
	}

	for i := range resources {
		visit(i)
	}
	return out, nil
}

// Simple is a literal Resource for hosts that declare capabilities and
// requirements directly.
type Simple struct {
	Caps []Capability
	Reqs []Requirement
}

func (s *Simple) Capabilities() []Capability { return s.Caps }

func (s *Simple) Requirements() []Requirement { return s.Reqs }
