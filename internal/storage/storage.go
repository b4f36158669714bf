// Package storage provides the git-backed raw message archive for gopherlist.
//
// Every ingested message is kept verbatim as an .eml file inside a git
// repository, one directory per list, sharded by the first two hex digits
// of the SHA-1 of its Message-ID. The git history doubles as the archive
// changelog. The index database can always be rebuilt from this store.
package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"path"
	"time"
)

// Errors for storage operations.
var (
	ErrNotFound      = errors.New("storage: not found")
	ErrStorage       = errors.New("storage: operation failed")
	ErrPathTraversal = errors.New("storage: path traversal rejected")
)

// Author represents a commit author.
type Author struct {
	Name  string
	Email string
}

// CommitMetadata holds information about an archive commit.
type CommitMetadata struct {
	Revision     string
	RevisionFull string
	Datetime     time.Time
	AuthorName   string
	AuthorEmail  string
	Message      string
	Files        []string
}

// BlobPath returns the repository-relative path for a message blob:
// <list>/<xx>/<sha1-of-message-id>.eml, where xx is the first shard
// byte of the digest. The message id is hashed as-is, so callers must
// canonicalize it (strip angle brackets) first.
func BlobPath(list, messageID string) string {
	sum := sha1.Sum([]byte(messageID))
	digest := hex.EncodeToString(sum[:])
	return path.Join(list, digest[:2], digest+".eml")
}

// Storage defines the interface for the raw message archive.
type Storage interface {
	// Path returns the repository path.
	Path() string

	// Exists checks if a message file exists.
	Exists(filename string) bool

	// Mtime returns the modification time of a file.
	Mtime(filename string) (time.Time, error)

	// Load reads a message file's raw content.
	Load(filename string) ([]byte, error)

	// Store writes content and commits it. Returns false without
	// committing when the file already holds identical content.
	Store(filename string, content []byte, message string, author Author) (bool, error)

	// Write stages content without committing, for bulk imports that
	// finish with a single Commit. Returns false when unchanged.
	Write(filename string, content []byte) (bool, error)

	// Commit commits the given files in one archive commit.
	Commit(filenames []string, message string, author Author) error

	// Remove deletes a message file and commits the removal.
	Remove(filename string, message string, author Author) error

	// ListMessages returns the repository-relative paths of all message
	// files under the given list directory, sorted.
	ListMessages(list string) ([]string, error)

	// MessageCount counts the message files under the given list.
	MessageCount(list string) (int, error)

	// Log returns the commit history for a path prefix ("" for the whole
	// archive), newest first, with the touched files of each commit.
	Log(prefix string, maxCount int) ([]CommitMetadata, error)
}
