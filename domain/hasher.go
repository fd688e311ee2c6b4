package domain

// Hasher fingerprints content, e.g. image bytes served with an ETag.
type Hasher interface {
	Hash(data []byte) string
}
