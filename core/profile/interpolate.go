package profile

import "strings"

// CatchAllScheme is the reserved resolver scheme applied after ${var}
// substitution: every catch-all resolver sees the current result and may
// replace it.
const CatchAllScheme = "*"

// Resolver supplies values for placeholders. A Resolver with an empty
// Scheme is scheme-less and is offered every raw value; a schemed
// resolver only sees values written as "scheme:rest". The boolean result
// reports whether the resolver produced a value.
type Resolver interface {
	Scheme() string
	Resolve(p *Profile, pid, key, value string) (string, bool)
}

// ResolverFunc adapts a function to the Resolver interface under a fixed
// scheme.
type ResolverFunc struct {
	Name string
	Fn   func(p *Profile, pid, key, value string) (string, bool)
}

func (r ResolverFunc) Scheme() string { return r.Name }

func (r ResolverFunc) Resolve(p *Profile, pid, key, value string) (string, bool) {
	return r.Fn(p, pid, key, value)
}

// Interpolator substitutes placeholders in a profile's configuration
// values on demand, memoising per pid/key. Substitution runs in four
// stages: scheme-less resolvers, schemed resolvers, cycle-safe ${var}
// expansion over the configuration space, then catch-all resolvers.
type Interpolator struct {
	profile   *Profile
	resolvers []Resolver
	final     bool

	memo       map[string]string
	inProgress map[string]bool
}

// NewInterpolator wraps a profile. When finalSubstitution is set,
// unresolvable ${var} references read as empty text rather than staying
// verbatim.
func NewInterpolator(p *Profile, resolvers []Resolver, finalSubstitution bool) *Interpolator {
	return &Interpolator{
		profile:    p,
		resolvers:  resolvers,
		final:      finalSubstitution,
		memo:       make(map[string]string),
		inProgress: make(map[string]bool),
	}
}

// Value returns the substituted value for pid/key. A key participating in
// a substitution cycle resolves to its own ${key} reference, unexpanded.
func (ip *Interpolator) Value(pid, key string) string {
	id := pid + "\x00" + key
	if v, ok := ip.memo[id]; ok {
		return v
	}
	if ip.inProgress[id] {
		// Cycle: yield the reference itself rather than recursing.
		return "${" + key + "}"
	}

	raw, ok := ip.profile.Config(pid)[key]
	if !ok {
		if ip.final {
			return ""
		}
		return "${" + key + "}"
	}

	ip.inProgress[id] = true
	v := ip.substitute(pid, key, raw)
	delete(ip.inProgress, id)
	ip.memo[id] = v
	return v
}

// Apply substitutes every configuration of the profile and returns the
// result as a new profile. Non-configuration files pass through.
func (ip *Interpolator) Apply() *Profile {
	b := From(ip.profile)
	for _, pid := range ip.profile.ConfigNames() {
		cfg := ip.profile.Config(pid)
		out := make(map[string]string, len(cfg))
		for key := range cfg {
			out[key] = ip.Value(pid, key)
		}
		b.SetConfig(pid, out)
	}
	return b.Build()
}

func (ip *Interpolator) substitute(pid, key, value string) string {
	resolved := false
	for _, r := range ip.resolvers {
		if r.Scheme() != "" {
			continue
		}
		if v, ok := r.Resolve(ip.profile, pid, key, value); ok {
			value = v
			resolved = true
			break
		}
	}

	if !resolved {
		if i := strings.Index(value, ":"); i > 0 {
			scheme, rest := value[:i], value[i+1:]
			for _, r := range ip.resolvers {
				if r.Scheme() != scheme || r.Scheme() == CatchAllScheme {
					continue
				}
				if v, ok := r.Resolve(ip.profile, pid, rest, rest); ok {
					value = v
					break
				}
			}
		}
	}

	value = ip.expand(pid, value)

	for _, r := range ip.resolvers {
		if r.Scheme() != CatchAllScheme {
			continue
		}
		if v, ok := r.Resolve(ip.profile, pid, key, value); ok {
			value = v
		}
	}
	return value
}

// expand replaces ${ref} markers. A ref may be "key" within the same pid
// or "pid/key" across configurations.
func (ip *Interpolator) expand(pid, value string) string {
	var b strings.Builder
	for {
		i := strings.Index(value, "${")
		if i < 0 {
			b.WriteString(value)
			return b.String()
		}
		j := strings.Index(value[i:], "}")
		if j < 0 {
			b.WriteString(value)
			return b.String()
		}
		b.WriteString(value[:i])
		ref := value[i+2 : i+j]
		value = value[i+j+1:]

		refPid, refKey := pid, ref
		if k := strings.Index(ref, "/"); k >= 0 {
			refPid, refKey = ref[:k], ref[k+1:]
		}
		b.WriteString(ip.Value(refPid, refKey))
	}
}
