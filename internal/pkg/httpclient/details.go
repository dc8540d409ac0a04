package httpclient

import "fmt"

const (
	DetailRequestName  = "request_name"
	DetailRequestTag   = "request_tag"
	DetailRequestLabel = "request_label"

	unnamed = "UNNAMED"
)

// Details travel with a request through logging, retries and message
// building. Keys already present are never overwritten by the client.
type Details map[string]any

// String returns the value under key formatted as a string, or "" when the
// key is absent or nil.
func (d Details) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Has reports whether key is present.
func (d Details) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// SetDefault stores value under key unless the key is present.
func (d Details) SetDefault(key string, value any) {
	if !d.Has(key) {
		d[key] = value
	}
}

// Clone returns a shallow copy.
func (d Details) Clone() Details {
	out := make(Details, len(d)+3)
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Label returns NAME-TAG, or NAME without a tag. NAME defaults to UNNAMED.
func Label(name, tag string) string {
	if name == "" {
		name = unnamed
	}
	if tag == "" {
		return name
	}
	return name + "-" + tag
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// requestDetails fills the request name, tag and label.
func requestDetails(in Details, name, tag string) Details {
	d := in.Clone()
	d.SetDefault(DetailRequestName, optional(name))
	d.SetDefault(DetailRequestTag, optional(tag))
	d.SetDefault(DetailRequestLabel, Label(name, tag))
	return d
}
