package profile

import (
	"fmt"
	"strings"
)

// MissingProfileError reports an overlay that references an unknown
// parent id.
type MissingProfileError struct {
	ID string
}

func (e *MissingProfileError) Error() string {
	return fmt.Sprintf("profile not found: %s", e.ID)
}

// Overlay flattens a profile's parent graph into a single profile. The
// walk is depth-first post-order over ParentIDs, so children merge after
// their parents and closer overrides win. Revisiting a profile already on
// the walk is a no-op, which makes parent cycles safe.
//
// When environment is non-empty, a file entry key#environment in the same
// profile replaces key's value for that merge step. Keys containing '#'
// never merge directly.
func Overlay(p *Profile, registry map[string]*Profile, environment string) (*Profile, error) {
	acc := &overlayAccumulator{
		configs: make(map[string]map[string]string),
		opaque:  make(map[string][]byte),
	}

	visited := make(map[string]bool)
	var walk func(p *Profile) error
	walk = func(p *Profile) error {
		if visited[p.ID()] {
			return nil
		}
		visited[p.ID()] = true
		for _, parentID := range p.ParentIDs() {
			parent, ok := registry[parentID]
			if !ok {
				return &MissingProfileError{ID: parentID}
			}
			if err := walk(parent); err != nil {
				return err
			}
		}
		acc.merge(p, environment)
		return nil
	}
	if err := walk(p); err != nil {
		return nil, err
	}

	b := NewBuilder(p.ID()).setOverlay(true)
	for name, data := range acc.opaque {
		b.AddFile(name, data)
	}
	for name, cfg := range acc.configs {
		b.files[name] = writeProperties(cfg)
	}
	return b.Build(), nil
}

type overlayAccumulator struct {
	configs map[string]map[string]string
	opaque  map[string][]byte
}

func (acc *overlayAccumulator) merge(p *Profile, environment string) {
	for _, name := range p.FileNames() {
		if strings.Contains(name, "#") {
			// Environment-qualified entries only apply through their
			// base key below.
			continue
		}

		data := p.File(name)
		if environment != "" {
			if sibling := p.File(name + "#" + environment); sibling != nil {
				data = sibling
			}
		}

		if !strings.HasSuffix(name, PropertiesSuffix) {
			acc.opaque[name] = data
			continue
		}

		incoming, err := parseProperties(data)
		if err != nil {
			// An unparsable configuration merges as opaque bytes.
			acc.opaque[name] = data
			continue
		}

		// Merging into an empty map covers the first sight of a
		// configuration; processing sentinels uniformly keeps the
		// overlay idempotent.
		target, ok := acc.configs[name]
		if !ok {
			target = make(map[string]string)
			acc.configs[name] = target
		}
		if _, ok := incoming[DeletedMarker]; ok {
			for k := range target {
				delete(target, k)
			}
		}
		for k, v := range incoming {
			if v == DeletedMarker {
				delete(target, k)
			} else {
				target[k] = v
			}
		}
	}
}
