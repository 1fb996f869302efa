package modelmap

import (
	"encoding/json"

	"mercator-hq/ccrelay/pkg/match"
)

// Entry is one mapping rule. Pattern may be a literal model name or a
// glob ("*"/"?") to be matched against the request's "model" field.
type Entry struct {
	Pattern string
	Model   string
}

// compiled pairs an Entry with a compiled glob. Nothing in this package
// builds it; lookups compile each wildcard pattern on every call.
type compiled struct {
	entry Entry
	glob  *match.Glob
}

// Apply rewrites body's "model" field per modelMap/vlModelMap and returns
// the re-serialised bytes. If the body contains image content and
// vlModelMap is non-empty, vlModelMap is tried first; otherwise modelMap.
// If no rule in the selected map matches, the other map is tried as a
// fallback. On any JSON parse failure, body is returned unchanged.
func Apply(body []byte, modelMap, vlModelMap []Entry) []byte {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return body
	}

	model, _ := doc["model"].(string)
	if model == "" {
		return body
	}

	primary, fallback := modelMap, vlModelMap
	if hasImageContent(doc) && len(vlModelMap) > 0 {
		primary, fallback = vlModelMap, modelMap
	}

	mapped, ok := lookup(model, primary)
	if !ok {
		mapped, ok = lookup(model, fallback)
	}
	if !ok {
		return body
	}

	doc["model"] = mapped
	out, err := json.Marshal(doc)
	if err != nil {
		return body
	}
	return out
}

// lookup tries exact matches first, then glob matches, in rule order.
func lookup(model string, entries []Entry) (string, bool) {
	for _, e := range entries {
		if e.Pattern == model {
			return e.Model, true
		}
	}
	for _, e := range entries {
		if match.CompileGlob(e.Pattern).Match(model) {
			return e.Model, true
		}
	}
	return "", false
}

// hasImageContent reports whether doc's messages[].content[] carries an
// image block: a content part of type "image" or "image_url", or a
// nested "image_url" object.
func hasImageContent(doc map[string]interface{}) bool {
	messages, ok := doc["messages"].([]interface{})
	if !ok {
		return false
	}
	for _, m := range messages {
		msg, ok := m.(map[string]interface{})
		if !ok {
			continue
		}
		parts, ok := msg["content"].([]interface{})
		if !ok {
			continue
		}
		for _, p := range parts {
			part, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			if t, _ := part["type"].(string); t == "image" || t == "image_url" {
				return true
			}
			if _, ok := part["image_url"]; ok {
				return true
			}
		}
	}
	return false
}
