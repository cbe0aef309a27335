package domain

import "sort"

// Properties is a string map in which an empty value and an absent key are
// the same thing. Setting a key to "" deletes it.
type Properties map[string]string

func (p Properties) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Set reports whether the map changed.
func (p *Properties) Set(key, value string) bool {
	old, ok := (*p)[key]
	if value == "" {
		if !ok {
			return false
		}
		delete(*p, key)
		return true
	}
	if ok && old == value {
		return false
	}
	if *p == nil {
		*p = make(Properties)
	}
	(*p)[key] = value
	return true
}

// Merge applies every entry of update with Set semantics and returns the
// changed keys, sorted. It returns nil when nothing changed.
func (p *Properties) Merge(update map[string]string) []string {
	var changed []string
	for k, v := range update {
		if p.Set(k, v) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func (p Properties) Clone() Properties {
	if len(p) == 0 {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
