package domain

import (
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// ValidID reports whether id is a dotted numeric identifier such as "2.3.1".
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ParentID strips the last dotted segment: "1.1.2" -> "1.1", "1" -> "".
func ParentID(id string) string {
	i := strings.LastIndexByte(id, '.')
	if i < 0 {
		return ""
	}
	return id[:i]
}

// Depth is the number of dotted segments in id.
func Depth(id string) int {
	if id == "" {
		return 0
	}
	return strings.Count(id, ".") + 1
}
