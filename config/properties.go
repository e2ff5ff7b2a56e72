package config

// Properties is a simple string-keyed map used for global key/value
// settings, mirroring the teacher's types.Properties.
type Properties map[string]any

// NewProperties returns an empty, ready-to-use Properties map.
func NewProperties() Properties { return make(Properties) }

// Copy returns an isolated shallow copy so callers cannot mutate a shared
// Properties instance through an alias.
func (p Properties) Copy() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Get returns the value for key and whether it was present.
func (p Properties) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// Set stores value under key. A call with an empty key is a no-op, matching
// the teacher's PutValue guard against malformed entries.
func (p Properties) Set(key string, value any) {
	if key != "" {
		p[key] = value
	}
}
