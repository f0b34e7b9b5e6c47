package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intake/internal/config"
	"github.com/sells-group/lead-intake/internal/model"
)

// FileStore is the legacy driver: a single JSON array rewritten wholesale on
// every mutation. Kept for deploys that predate the sqlite default. It is not
// safe for concurrent processes; within one process a mutex serializes the
// read-modify-write cycle. On ephemeral deploys the file lives in the OS temp
// dir and does not survive a redeploy.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a FileStore at cfg.FilePath, or under the temp dir when
// cfg.Ephemeral is set.
func NewFile(cfg config.StoreConfig) *FileStore {
	path := cfg.FilePath
	if path == "" {
		path = "data/briefs.json"
	}
	if cfg.Ephemeral {
		path = filepath.Join(os.TempDir(), "briefs.json")
	}
	return &FileStore{path: path}
}

func (s *FileStore) Migrate(ctx context.Context) error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "file: create data dir")
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// load reads the whole backing file. A read failure degrades to an empty
// collection rather than erroring: a missing or corrupt audit file must not
// take the intake path down.
func (s *FileStore) load() []model.Brief {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("file store read failed, treating as empty",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		return nil
	}
	var briefs []model.Brief
	if err := json.Unmarshal(data, &briefs); err != nil {
		zap.L().Warn("file store parse failed, treating as empty",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return nil
	}
	return briefs
}

// save rewrites the whole backing file. Write failures propagate; callers
// treat persistence as best-effort and log them.
func (s *FileStore) save(briefs []model.Brief) error {
	if err := s.Migrate(context.Background()); err != nil {
		return err
	}
	data, err := json.MarshalIndent(briefs, "", "  ")
	if err != nil {
		return eris.Wrap(err, "file: marshal briefs")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return eris.Wrap(err, "file: write briefs")
	}
	return nil
}

func (s *FileStore) CreateBrief(ctx context.Context, brief *model.Brief) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	briefs := s.load()
	briefs = append(briefs, *brief)
	return s.save(briefs)
}

func (s *FileStore) GetBrief(ctx context.Context, id string) (*model.Brief, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.load() {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, nil
}

func (s *FileStore) ListBriefs(ctx context.Context, filter BriefFilter) ([]model.Brief, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Brief
	for _, b := range s.load() {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *FileStore) UpdateStatus(ctx context.Context, id string, status model.BriefStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	briefs := s.load()
	for i := range briefs {
		if briefs[i].ID == id {
			briefs[i].Status = status
			return s.save(briefs)
		}
	}
	return ErrNotFound
}

func (s *FileStore) FlagSpam(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	briefs := s.load()
	for i := range briefs {
		if briefs[i].ID == id {
			briefs[i].SpamFlagged = true
			if err := s.save(briefs); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	// Unknown id: no rewrite, file stays byte-identical.
	return false, nil
}

func (s *FileStore) Stats(ctx context.Context) (*BriefStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &BriefStats{ByStatus: make(map[model.BriefStatus]int)}
	for _, b := range s.load() {
		stats.Total++
		stats.ByStatus[b.Status]++
		if b.SpamFlagged {
			stats.SpamFlagged++
		}
	}
	return stats, nil
}
