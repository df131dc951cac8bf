package profile

import (
	"bytes"
	"sort"

	"github.com/magiconair/properties"
)

// parseProperties decodes a .properties file entry. Values stay raw:
// placeholder expansion is the interpolator's job, not the codec's.
func parseProperties(data []byte) (map[string]string, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, p.Len())
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		out[k] = v
	}
	return out, nil
}

// writeProperties encodes a configuration with stable key order.
func writeProperties(cfg map[string]string) []byte {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range keys {
		p.Set(k, cfg[k])
	}

	var buf bytes.Buffer
	p.Write(&buf, properties.UTF8)
	return buf.Bytes()
}
