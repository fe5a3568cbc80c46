package objectkey

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var testID = uuid.MustParse("abcd1234-5678-90ab-cdef-1234567890ab")

func TestPrefixGenerator(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		metadata *KeyMetadata
		expected string
	}{
		{
			name:     "with filename",
			prefix:   "uploads",
			metadata: &KeyMetadata{FileName: "cat.png"},
			expected: "uploads/abcd1234-5678-90ab-cdef-1234567890ab/cat.png",
		},
		{
			name:     "trims slashes",
			prefix:   "/uploads/",
			metadata: &KeyMetadata{FileName: "cat.png"},
			expected: "uploads/abcd1234-5678-90ab-cdef-1234567890ab/cat.png",
		},
		{
			name:     "no metadata",
			prefix:   "uploads",
			expected: "uploads/abcd1234-5678-90ab-cdef-1234567890ab",
		},
		{
			name:     "no prefix",
			metadata: &KeyMetadata{FileName: "a b.txt"},
			expected: "abcd1234-5678-90ab-cdef-1234567890ab/a_b.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewPrefixGenerator(tt.prefix).GenerateKey(testID, tt.metadata)
			assert.Equal(t, tt.expected, key)
		})
	}
}

func TestGitLikeGenerator(t *testing.T) {
	gen := NewGitLikeGenerator("uploads")

	key := gen.GenerateKey(testID, &KeyMetadata{FileName: "../etc/passwd"})
	assert.Equal(t, "uploads/objects/ab/cd1234567890abcdef1234567890ab_.._etc_passwd", key)

	key = gen.GenerateKey(testID, nil)
	assert.Equal(t, "uploads/objects/ab/cd1234567890abcdef1234567890ab", key)

	gen.ShardLength = 4
	key = gen.GenerateKey(testID, nil)
	assert.True(t, strings.HasPrefix(key, "uploads/objects/abcd/"), key)
}

func TestCustomFuncGenerator(t *testing.T) {
	gen := NewCustomFuncGenerator(func(objectID uuid.UUID, metadata *KeyMetadata) string {
		return "custom/" + metadata.ContentType + "/" + objectID.String()
	})

	key := gen.GenerateKey(testID, &KeyMetadata{ContentType: "image"})
	assert.Equal(t, "custom/image/abcd1234-5678-90ab-cdef-1234567890ab", key)
}

func TestDefault(t *testing.T) {
	key := Default().GenerateKey(testID, &KeyMetadata{FileName: "cat.png"})
	assert.Equal(t, "uploads/abcd1234-5678-90ab-cdef-1234567890ab/cat.png", key)
}
