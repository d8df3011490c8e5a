package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Paths of the review documents inside a repo.
const (
	Dir           = "review"
	StateFile     = "review-state.yaml"
	OverridesFile = "inbox-overrides.yaml"
	LockFile      = ".lock"
)

// lockRetry is how often a blocked writer retries the repo lock.
const lockRetry = 20 * time.Millisecond

// FileStore keeps review state as YAML under <repo>/review/. Every
// read-merge-write holds an advisory lock on review/.lock, so separate
// processes (and separate stores in one process) never interleave writes.
// Files are replaced by rename so readers never see a partial document.
type FileStore struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at repoRoot.
func NewFileStore(repoRoot string) *FileStore {
	return &FileStore{dir: filepath.Join(repoRoot, Dir), now: nowUTC}
}

// ReviewState returns the resolved set. A missing file is an empty state.
func (s *FileStore) ReviewState(_ context.Context) (model.ReviewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readState()
}

// Resolve marks ids resolved with note.
func (s *FileStore) Resolve(ctx context.Context, ids []string, note string) (model.ReviewState, error) {
	if err := checkIDs(ids); err != nil {
		return model.ReviewState{}, err
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return model.ReviewState{}, err
	}
	defer unlock()

	st, err := s.readState()
	if err != nil {
		return model.ReviewState{}, err
	}
	now := s.now()
	for _, id := range ids {
		st.Resolved[id] = model.Resolution{ResolvedAt: now, Note: note}
	}
	st.UpdatedAt = now
	if err := s.write(StateFile, st); err != nil {
		return model.ReviewState{}, err
	}
	return st, nil
}

// Unresolve removes ids from the resolved set.
func (s *FileStore) Unresolve(ctx context.Context, ids []string) (model.ReviewState, error) {
	if err := checkIDs(ids); err != nil {
		return model.ReviewState{}, err
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return model.ReviewState{}, err
	}
	defer unlock()

	st, err := s.readState()
	if err != nil {
		return model.ReviewState{}, err
	}
	for _, id := range ids {
		delete(st.Resolved, id)
	}
	st.UpdatedAt = s.now()
	if err := s.write(StateFile, st); err != nil {
		return model.ReviewState{}, err
	}
	return st, nil
}

// Overrides returns the suppression rules. A missing file means no rules.
func (s *FileStore) Overrides(_ context.Context) (model.InboxOverrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOverrides()
}

// MergeOverrides applies patch to the stored rules.
func (s *FileStore) MergeOverrides(ctx context.Context, patch model.OverridesPatch) (model.InboxOverrides, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return model.InboxOverrides{}, err
	}
	defer unlock()
	return s.mergeLocked(patch)
}

// SetRule turns a single rule on or off.
func (s *FileStore) SetRule(ctx context.Context, kind model.InboxKind, key string, on bool) (model.InboxOverrides, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return model.InboxOverrides{}, err
	}
	defer unlock()

	cur, err := s.readOverrides()
	if err != nil {
		return model.InboxOverrides{}, err
	}
	p, err := rulePatch(cur, kind, key, on)
	if err != nil {
		return model.InboxOverrides{}, err
	}
	return s.mergeLocked(p)
}

// lock takes the in-process mutex and then the repo-wide file lock. The
// returned func releases both.
func (s *FileStore) lock(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("creating review dir: %w", err)
	}
	fl := flock.New(filepath.Join(s.dir, LockFile))
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err == nil && !ok {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("locking review store: %w", err)
	}
	return func() {
		_ = fl.Unlock()
		s.mu.Unlock()
	}, nil
}

func (s *FileStore) mergeLocked(patch model.OverridesPatch) (model.InboxOverrides, error) {
	cur, err := s.readOverrides()
	if err != nil {
		return model.InboxOverrides{}, err
	}
	if patch.Empty() {
		return cur, nil
	}
	merged := patch.Apply(cur)
	merged.UpdatedAt = s.now()
	if err := s.write(OverridesFile, merged); err != nil {
		return model.InboxOverrides{}, err
	}
	return merged, nil
}

func (s *FileStore) readState() (model.ReviewState, error) {
	var st model.ReviewState
	if err := s.read(StateFile, &st); err != nil {
		return model.ReviewState{}, err
	}
	if st.Resolved == nil {
		st.Resolved = make(map[string]model.Resolution)
	}
	return st, nil
}

func (s *FileStore) readOverrides() (model.InboxOverrides, error) {
	var o model.InboxOverrides
	if err := s.read(OverridesFile, &o); err != nil {
		return model.InboxOverrides{}, err
	}
	// normalizes nil maps and drops false markers
	return model.OverridesPatch{}.Apply(o), nil
}

func (s *FileStore) read(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) write(name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating review dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
