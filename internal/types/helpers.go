package types

import "strings"

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsFold(values []string, target string) bool {
	key := foldKey(target)
	for _, v := range values {
		if foldKey(v) == key {
			return true
		}
	}
	return false
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
