package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates the storage key a signed policy is issued for
	GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	FileName    string
	ContentType string
}

// PrefixGenerator lays keys out as {prefix}/{objectID}/{filename}
type PrefixGenerator struct {
	Prefix string
}

func NewPrefixGenerator(prefix string) *PrefixGenerator {
	return &PrefixGenerator{Prefix: strings.Trim(prefix, "/")}
}

func (g *PrefixGenerator) GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string {
	parts := make([]string, 0, 3)
	if g.Prefix != "" {
		parts = append(parts, g.Prefix)
	}
	parts = append(parts, objectID.String())
	if metadata != nil && metadata.FileName != "" {
		parts = append(parts, sanitizeFilename(metadata.FileName))
	}
	return strings.Join(parts, "/")
}

// GitLikeGenerator provides Git-style sharded keys
// Structure: {prefix}/objects/ab/cd1234ef5678_filename
type GitLikeGenerator struct {
	Prefix string
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewGitLikeGenerator(prefix string) *GitLikeGenerator {
	return &GitLikeGenerator{
		Prefix:      strings.Trim(prefix, "/"),
		ShardLength: 2,
	}
}

func (g *GitLikeGenerator) GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string {
	objectIDStr := strings.ReplaceAll(objectID.String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 || shardLength > len(objectIDStr) {
		shardLength = 2
	}

	shardDir := objectIDStr[:shardLength]
	filename := objectIDStr[shardLength:]
	if metadata != nil && metadata.FileName != "" {
		filename = fmt.Sprintf("%s_%s", filename, sanitizeFilename(metadata.FileName))
	}

	return path.Join(g.Prefix, "objects", shardDir, filename)
}

// CustomFuncGenerator allows callers to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(objectID uuid.UUID, metadata *KeyMetadata) string
}

func NewCustomFuncGenerator(fn func(objectID uuid.UUID, metadata *KeyMetadata) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{GenerateFunc: fn}
}

func (g *CustomFuncGenerator) GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string {
	return g.GenerateFunc(objectID, metadata)
}

// Default returns the generator used by the signing server
func Default() Generator {
	return NewPrefixGenerator("uploads")
}

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(filename)
}
