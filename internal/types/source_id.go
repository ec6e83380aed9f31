package types

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceKind distinguishes responsibility and achievement bullets within an experience
type SourceKind byte

// Source kinds used in bullet source IDs
const (
	SourceResponsibility SourceKind = 'r'
	SourceAchievement    SourceKind = 'a'
)

// BulletSourceID builds the ID that ties a generated bullet to its originating sentence
func BulletSourceID(experienceID string, kind SourceKind, index int) string {
	return fmt.Sprintf("%s/%c%d", experienceID, kind, index)
}

// ParseSourceID splits a bullet source ID into experience ID, kind and index
func ParseSourceID(id string) (experienceID string, kind SourceKind, index int, ok bool) {
	slash := strings.LastIndex(id, "/")
	if slash <= 0 || slash+2 > len(id) {
		return "", 0, 0, false
	}
	kind = SourceKind(id[slash+1])
	if kind != SourceResponsibility && kind != SourceAchievement {
		return "", 0, 0, false
	}
	index, err := strconv.Atoi(id[slash+2:])
	if err != nil || index < 0 {
		return "", 0, 0, false
	}
	return id[:slash], kind, index, true
}
