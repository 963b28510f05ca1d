package domain

import (
	"strings"
	"unicode"
)

// ToolNameFromPath synthesizes a camelCase tool name from an HTTP method and
// an API path, dropping path parameters and the generic "api" prefix:
//
//	/api/types/lun/instances (get)  -> getTypesLunInstances
//	/api/instances/lun/{id}  (get)  -> getInstancesLun
//
// It is a pure function of its inputs. The generator uses it for operations
// without an operationId, and the dispatcher recomputes it during path
// resolution, so the two can never drift.
func ToolNameFromPath(path, method string) string {
	parts := []string{strings.ToLower(method)}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, "{") || seg == "api" {
			continue
		}
		parts = append(parts, seg)
	}

	var b strings.Builder
	for i, part := range parts {
		cleaned := cleanSegment(part)
		if i == 0 {
			b.WriteString(strings.ToLower(cleaned))
		} else {
			b.WriteString(capitalize(cleaned))
		}
	}
	return b.String()
}

// cleanSegment replaces non-alphanumeric runes with underscores.
func cleanSegment(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
