// Package fileid provides deterministic identifiers for source PDFs and their chunks.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const prefix = "pdf:"

// chunkNamespace scopes chunk UUIDs so they never collide with IDs minted elsewhere.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://labia/chunks"))

// RelativeName returns path relative to root with forward slashes. Paths outside root, or any
// path when root is empty, fall back to the base name.
func RelativeName(root, path string) string {
	path = filepath.Clean(path)
	if root == "" {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// DocumentKey returns a stable key for a source PDF, derived from its lower-cased name relative
// to the source root. Files directly under root key on their file name, and files with the
// same name in different subdirectories get different keys.
func DocumentKey(root, path string) string {
	name := strings.ToLower(RelativeName(root, path))
	hash := sha256.Sum256([]byte(name))
	return prefix + hex.EncodeToString(hash[:])
}

// ChunkID returns the deterministic ID of the chunk at index within a document of a collection.
func ChunkID(collection, documentKey string, index int) string {
	name := collection + "\x00" + documentKey + "\x00" + strconv.Itoa(index)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// ContentHash returns the hex SHA-256 of text.
func ContentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// FileHash returns the hex SHA-256 of the file contents.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
