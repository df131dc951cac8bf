// Package profile implements layered configuration profiles: parent
// overlay flattening, placeholder interpolation and on-disk storage.
package profile

import (
	"sort"
	"strings"
)

const (
	// ProfilePid is the internal configuration holding profile
	// attributes.
	ProfilePid = "profile"

	// AttributePrefix qualifies attribute keys inside the profile
	// configuration.
	AttributePrefix = "attribute."

	// ParentsAttribute lists parent profile ids, space separated.
	ParentsAttribute = "parents"

	// DeletedMarker is the sentinel recognised by the overlay merge: as
	// a key it clears the accumulated configuration, as a value it
	// removes its key.
	DeletedMarker = "#deleted#"

	// PropertiesSuffix marks file entries merged key-by-key instead of
	// overwritten wholesale.
	PropertiesSuffix = ".properties"
)

// Profile is an immutable named bundle of configuration files. Entries
// ending in .properties are key-value configurations; everything else is
// opaque bytes.
type Profile struct {
	id      string
	files   map[string][]byte
	overlay bool
}

// ID returns the profile id.
func (p *Profile) ID() string { return p.id }

// IsOverlay reports whether this profile is a flattened overlay rather
// than an authored one.
func (p *Profile) IsOverlay() bool { return p.overlay }

// FileNames returns the file entry names, sorted.
func (p *Profile) FileNames() []string {
	names := make([]string, 0, len(p.files))
	for k := range p.files {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// File returns the raw bytes of a file entry, nil when absent.
func (p *Profile) File(name string) []byte {
	return p.files[name]
}

// HasFile reports whether a file entry exists.
func (p *Profile) HasFile(name string) bool {
	_, ok := p.files[name]
	return ok
}

// Config parses the configuration for a pid. A missing or malformed
// entry reads as empty.
func (p *Profile) Config(pid string) map[string]string {
	data, ok := p.files[pid+PropertiesSuffix]
	if !ok {
		return map[string]string{}
	}
	cfg, err := parseProperties(data)
	if err != nil {
		return map[string]string{}
	}
	return cfg
}

// ConfigNames returns the pids of all property configurations, sorted.
func (p *Profile) ConfigNames() []string {
	var pids []string
	for name := range p.files {
		if strings.HasSuffix(name, PropertiesSuffix) && !strings.Contains(name, "#") {
			pids = append(pids, strings.TrimSuffix(name, PropertiesSuffix))
		}
	}
	sort.Strings(pids)
	return pids
}

// Attributes returns the attribute.* entries of the profile
// configuration, prefix stripped.
func (p *Profile) Attributes() map[string]string {
	out := make(map[string]string)
	for k, v := range p.Config(ProfilePid) {
		if strings.HasPrefix(k, AttributePrefix) {
			out[strings.TrimPrefix(k, AttributePrefix)] = v
		}
	}
	return out
}

// ParentIDs returns the ordered parent profile ids.
func (p *Profile) ParentIDs() []string {
	parents := p.Attributes()[ParentsAttribute]
	if parents == "" {
		return nil
	}
	return strings.Fields(parents)
}

// Builder assembles profiles.
type Builder struct {
	id      string
	files   map[string][]byte
	overlay bool
}

// NewBuilder starts a profile with the given id.
func NewBuilder(id string) *Builder {
	return &Builder{id: id, files: make(map[string][]byte)}
}

// From seeds a builder with a copy of an existing profile's files.
func From(p *Profile) *Builder {
	b := NewBuilder(p.id)
	for k, v := range p.files {
		b.files[k] = append([]byte(nil), v...)
	}
	b.overlay = p.overlay
	return b
}

// AddFile sets a raw file entry.
func (b *Builder) AddFile(name string, data []byte) *Builder {
	b.files[name] = append([]byte(nil), data...)
	return b
}

// DeleteFile removes a file entry.
func (b *Builder) DeleteFile(name string) *Builder {
	delete(b.files, name)
	return b
}

// SetConfig sets the configuration for a pid, replacing any prior entry.
func (b *Builder) SetConfig(pid string, cfg map[string]string) *Builder {
	b.files[pid+PropertiesSuffix] = writeProperties(cfg)
	return b
}

// SetAttributes merges attributes into the profile configuration.
func (b *Builder) SetAttributes(attrs map[string]string) *Builder {
	cfg := map[string]string{}
	if data, ok := b.files[ProfilePid+PropertiesSuffix]; ok {
		if parsed, err := parseProperties(data); err == nil {
			cfg = parsed
		}
	}
	for k, v := range attrs {
		cfg[AttributePrefix+k] = v
	}
	return b.SetConfig(ProfilePid, cfg)
}

// SetParents sets the ordered parent id list.
func (b *Builder) SetParents(ids []string) *Builder {
	return b.SetAttributes(map[string]string{
		ParentsAttribute: strings.Join(ids, " "),
	})
}

func (b *Builder) setOverlay(overlay bool) *Builder {
	b.overlay = overlay
	return b
}

// Build produces the profile. The builder may keep being used; the
// profile does not share its file map.
func (b *Builder) Build() *Profile {
	files := make(map[string][]byte, len(b.files))
	for k, v := range b.files {
		files[k] = append([]byte(nil), v...)
	}
	return &Profile{id: b.id, files: files, overlay: b.overlay}
}
