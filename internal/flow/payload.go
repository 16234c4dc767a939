package flow

import "strings"

// Payload is a form submission keyed by field name. Nested objects are
// map[string]any values addressed with dotted paths ("userInfo.email").
type Payload = map[string]any

// Lookup reads a dotted path from p.
func Lookup(p map[string]any, path string) (any, bool) {
	var cur any = p
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Omit returns a deep copy of p without the given dotted paths. Missing paths
// are ignored.
func Omit(p map[string]any, paths []string) map[string]any {
	out := clonePayload(p)
	for _, path := range paths {
		deletePath(out, path)
	}
	return out
}

func setPath(p map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	cur := p
	for _, key := range keys[:len(keys)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

func deletePath(p map[string]any, path string) {
	keys := strings.Split(path, ".")
	cur := p
	for _, key := range keys[:len(keys)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, keys[len(keys)-1])
}

func clonePayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if nested, ok := v.(map[string]any); ok {
			out[k] = clonePayload(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func isTrue(v any, ok bool) bool {
	b, isBool := v.(bool)
	return ok && isBool && b
}
