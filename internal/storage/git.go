package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var errIterDone = errors.New("iteration done")

// GitStorage implements Storage using a Git repository.
type GitStorage struct {
	path string
	repo *git.Repository
	mu   sync.Mutex
}

// NewGitStorage creates a new GitStorage for the given path.
func NewGitStorage(path string, initialize bool) (*GitStorage, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	var repo *git.Repository
	if initialize {
		repo, err = git.PlainInit(absPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize repository: %w", err)
		}
	} else {
		repo, err = git.PlainOpen(absPath)
		if err != nil {
			return nil, fmt.Errorf("no valid git repository in '%s': %w", absPath, err)
		}
	}

	return &GitStorage{
		path: absPath,
		repo: repo,
	}, nil
}

// Path returns the repository path.
func (g *GitStorage) Path() string {
	return g.path
}

// validatePath checks that the given path does not escape the repository root.
func (g *GitStorage) validatePath(filename string) error {
	if filename == "" {
		return nil
	}
	cleaned := filepath.Clean(filename)
	if filepath.IsAbs(cleaned) {
		return ErrPathTraversal
	}
	if strings.HasPrefix(cleaned, "..") {
		return ErrPathTraversal
	}
	joined := filepath.Join(g.path, cleaned)
	if !strings.HasPrefix(joined, g.path+string(filepath.Separator)) && joined != g.path {
		return ErrPathTraversal
	}
	return nil
}

// Exists checks if a message file exists.
func (g *GitStorage) Exists(filename string) bool {
	if g.validatePath(filename) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(g.path, filename))
	return err == nil
}

// Mtime returns the modification time of a file.
func (g *GitStorage) Mtime(filename string) (time.Time, error) {
	if err := g.validatePath(filename); err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(filepath.Join(g.path, filename))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// checkReload checks if the repository needs to be reloaded. Dropping a
// RELOAD_GIT marker into .git tells us an external process rewrote the
// archive (a mirror pull, a manual fixup) behind our back.
func (g *GitStorage) checkReload() {
	reloadPath := filepath.Join(g.path, ".git", "RELOAD_GIT")
	if _, err := os.Stat(reloadPath); err == nil {
		if err := os.Remove(reloadPath); err != nil {
			slog.Warn("failed to remove reload marker", "error", err)
		}
		repo, err := git.PlainOpen(g.path)
		if err == nil {
			g.repo = repo
		}
	}
}

// Load reads a message file's raw content. Messages are immutable once
// archived, so there is no revision parameter: the working tree is
// always the latest and only state.
func (g *GitStorage) Load(filename string) ([]byte, error) {
	if err := g.validatePath(filename); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(g.path, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// writeLocked writes content to filename, creating shard directories as
// needed. Returns false when the file already holds identical bytes, so
// re-importing an mbox never produces churn commits. Caller must hold g.mu.
func (g *GitStorage) writeLocked(filename string, content []byte) (bool, error) {
	fullPath := filepath.Join(g.path, filename)

	if existing, err := os.ReadFile(fullPath); err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	if dir := filepath.Dir(fullPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o775); err != nil {
			return false, err
		}
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// commitLocked stages the given files and commits them. Caller must hold g.mu.
func (g *GitStorage) commitLocked(filenames []string, message string, author Author) error {
	worktree, err := g.repo.Worktree()
	if err != nil {
		return err
	}

	for _, filename := range filenames {
		if _, err := worktree.Add(filename); err != nil {
			return fmt.Errorf("failed to add %s: %w", filename, err)
		}
	}

	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	return err
}

// Store writes content and commits it in one step.
func (g *GitStorage) Store(filename string, content []byte, message string, author Author) (bool, error) {
	if err := g.validatePath(filename); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkReload()

	changed, err := g.writeLocked(filename, content)
	if err != nil || !changed {
		return changed, err
	}

	if message == "" {
		message = "Archive " + filename
	}
	if err := g.commitLocked([]string{filename}, message, author); err != nil {
		return false, err
	}
	return true, nil
}

// Write stages content without committing.
func (g *GitStorage) Write(filename string, content []byte) (bool, error) {
	if err := g.validatePath(filename); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writeLocked(filename, content)
}

// Commit commits the given files in one archive commit. A bulk import
// writes its messages first and finishes here, so a thousand-message
// mbox becomes a single commit instead of a thousand.
func (g *GitStorage) Commit(filenames []string, message string, author Author) error {
	if len(filenames) == 0 {
		return nil
	}
	for _, filename := range filenames {
		if err := g.validatePath(filename); err != nil {
			return err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkReload()
	return g.commitLocked(filenames, message, author)
}

// Remove deletes a message file and commits the removal. Removing a file
// that does not exist is a no-op.
func (g *GitStorage) Remove(filename string, message string, author Author) error {
	if err := g.validatePath(filename); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkReload()

	fullPath := filepath.Join(g.path, filename)
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	worktree, err := g.repo.Worktree()
	if err != nil {
		return err
	}
	if _, err := worktree.Remove(filename); err != nil {
		return err
	}

	if message == "" {
		message = fmt.Sprintf("Remove %s.", filename)
	}
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	return err
}

// ListMessages returns the repository-relative paths of all message files
// under the given list directory, sorted. A list directory that does not
// exist yet yields an empty result, not an error.
func (g *GitStorage) ListMessages(list string) ([]string, error) {
	if list != "" {
		if err := g.validatePath(list); err != nil {
			return nil, err
		}
	}

	root := g.path
	if list != "" {
		root = filepath.Join(g.path, list)
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // Skip unreadable entries and missing roots
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".eml") {
			return nil
		}
		rel, err := filepath.Rel(g.path, p)
		if err != nil {
			slog.Warn("failed to compute relative path", "path", p, "error", err)
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// MessageCount counts the message files under the given list.
func (g *GitStorage) MessageCount(list string) (int, error) {
	files, err := g.ListMessages(list)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// Log returns the commit history for a path prefix, newest first.
func (g *GitStorage) Log(prefix string, maxCount int) ([]CommitMetadata, error) {
	if prefix != "" {
		if err := g.validatePath(prefix); err != nil {
			return nil, err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkReload()

	opts := &git.LogOptions{
		Order: git.LogOrderCommitterTime,
	}
	if prefix != "" {
		opts.PathFilter = func(path string) bool {
			return path == prefix || strings.HasPrefix(path, prefix+"/")
		}
	}

	iter, err := g.repo.Log(opts)
	if err != nil {
		return nil, ErrNotFound
	}
	defer iter.Close()

	var result []CommitMetadata
	count := 0

	err = iter.ForEach(func(commit *object.Commit) error {
		if maxCount > 0 && count >= maxCount {
			return errIterDone
		}

		meta, err := g.commitToMetadata(commit, true)
		if err != nil {
			return err
		}
		result = append(result, *meta)
		count++
		return nil
	})

	if err != nil && !errors.Is(err, errIterDone) && len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// commitToMetadata converts a commit into CommitMetadata, optionally
// collecting the files it touched.
func (g *GitStorage) commitToMetadata(commit *object.Commit, includeFiles bool) (*CommitMetadata, error) {
	var files []string

	if includeFiles {
		parentIter := commit.Parents()
		parent, err := parentIter.Next()
		parentIter.Close()

		if err == nil {
			parentTree, err := parent.Tree()
			if err != nil {
				slog.Warn("failed to load parent tree", "commit", commit.Hash.String()[:6], "error", err)
				parentTree = nil
			}
			commitTree, err := commit.Tree()
			if err != nil {
				slog.Warn("failed to load commit tree", "commit", commit.Hash.String()[:6], "error", err)
				commitTree = nil
			}
			if parentTree != nil && commitTree != nil {
				changes, err := parentTree.Diff(commitTree)
				if err == nil {
					for _, change := range changes {
						if change.From.Name != "" {
							files = append(files, change.From.Name)
						} else if change.To.Name != "" {
							files = append(files, change.To.Name)
						}
					}
				}
			}
		} else {
			// Initial commit - list all files
			tree, err := commit.Tree()
			if err != nil {
				slog.Warn("failed to load tree for initial commit", "commit", commit.Hash.String()[:6], "error", err)
			}
			if err == nil {
				tree.Files().ForEach(func(f *object.File) error {
					files = append(files, f.Name)
					return nil
				})
			}
		}
	}

	return &CommitMetadata{
		Revision:     commit.Hash.String()[:6],
		RevisionFull: commit.Hash.String(),
		Datetime:     commit.Author.When,
		AuthorName:   commit.Author.Name,
		AuthorEmail:  commit.Author.Email,
		Message:      strings.TrimSpace(commit.Message),
		Files:        files,
	}, nil
}

var _ Storage = (*GitStorage)(nil)
