package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Metadata describes where ingested text came from
type Metadata struct {
	Source     string `json:"source"`
	Format     Format `json:"format,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Timestamp  string `json:"timestamp"` // RFC3339
	Hash       string `json:"hash"`      // SHA256 of the cleaned text
	Characters int    `json:"characters"`
}

// NewMetadata records content read from source now
func NewMetadata(content, source string, format Format) *Metadata {
	return &Metadata{
		Source:     source,
		Format:     format,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Hash:       computeHash(content),
		Characters: len(content),
	}
}

func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
