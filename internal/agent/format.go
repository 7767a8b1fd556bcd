package agent

import "strings"

// =============================================================================
// FORMAT HINT GRAMMAR
// =============================================================================
//
// Format hints are a small type grammar over
// {int, float, list[T], object{field:type,...}, string}. A hint is
// parsed once per item and drives answer shaping; unrecognized hints
// fall back to string.

// HintKind is the top-level type of a format hint.
type HintKind string

const (
	HintInt    HintKind = "int"
	HintFloat  HintKind = "float"
	HintList   HintKind = "list"
	HintObject HintKind = "object"
	HintString HintKind = "string"
)

// HintField is one declared field of an object hint.
type HintField struct {
	Name string
	Type string
}

// Hint is a parsed format hint.
type Hint struct {
	Kind   HintKind
	Inner  *Hint       // element type for list hints
	Fields []HintField // declared fields for object hints
}

// ParseHint parses a format-hint string. It never fails; anything it
// cannot make sense of is a string hint.
func ParseHint(raw string) Hint {
	hint := strings.TrimSpace(raw)
	switch {
	case hint == "int":
		return Hint{Kind: HintInt}
	case strings.HasPrefix(hint, "float"):
		return Hint{Kind: HintFloat}
	case strings.HasPrefix(hint, "list"):
		h := Hint{Kind: HintList}
		inner := strings.TrimSpace(strings.TrimPrefix(hint, "list"))
		if strings.HasPrefix(inner, "[") && strings.HasSuffix(inner, "]") {
			elem := ParseHint(inner[1 : len(inner)-1])
			h.Inner = &elem
		}
		return h
	case strings.HasPrefix(hint, "{") && strings.HasSuffix(hint, "}"):
		h := Hint{Kind: HintObject}
		for _, piece := range strings.Split(hint[1:len(hint)-1], ",") {
			name, typ, ok := strings.Cut(piece, ":")
			if !ok {
				continue
			}
			h.Fields = append(h.Fields, HintField{
				Name: strings.Trim(strings.TrimSpace(name), "{} "),
				Type: strings.TrimSpace(typ),
			})
		}
		return h
	}
	return Hint{Kind: HintString}
}
