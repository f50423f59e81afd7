package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/foxseedlab/kiosko/internal/ledger"
)

const (
	groupsFileName = "servers.json"
	codesFileName  = "codes.txt"
	corruptSuffix  = ".corrupt"
)

// FileStore persists the ledger as a json group map plus a line-delimited code pool.
type FileStore struct {
	dir string

	mu    sync.Mutex
	state *ledger.State
	// keepGroups is set when servers.json had content that could not be
	// loaded; the file is moved aside before it is first rewritten.
	keepGroups bool
}

// OpenFileStore loads dir. Missing or unreadable files start empty.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger dir: %w", err)
	}
	s := &FileStore{dir: dir}
	s.state = &ledger.State{
		Groups: s.loadGroups(),
		Codes:  s.loadCodes(),
	}
	slog.Info("ledger loaded", "dir", dir, "verified_groups", len(s.state.Groups), "pending_codes", len(s.state.Codes))
	return s, nil
}

func (s *FileStore) View(_ context.Context) (*ledger.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *FileStore) Update(ctx context.Context, fn func(*ledger.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// codes first: a crash between the writes leaves a consumed code absent rather than reusable
	if err := s.writeCodes(next.Codes); err != nil {
		return err
	}
	if err := s.preserveCorruptGroups(); err != nil {
		return err
	}
	if err := s.writeGroups(next.Groups); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *FileStore) loadGroups() map[string]ledger.Record {
	groups := map[string]ledger.Record{}
	path := filepath.Join(s.dir, groupsFileName)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return groups
	}
	if err != nil {
		slog.Warn("failed to read ledger groups; starting empty", "path", path, "error", err)
		return groups
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return groups
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(b, &entries); err != nil {
		slog.Warn("ledger groups file is corrupt; starting empty", "path", path, "error", err)
		s.keepGroups = true
		return groups
	}
	for id, raw := range entries {
		var rec ledger.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			slog.Warn("skipping unreadable ledger group", "path", path, "guild_id", id, "error", err)
			s.keepGroups = true
			continue
		}
		groups[id] = rec
	}
	return groups
}

// preserveCorruptGroups moves an unreadable servers.json aside once.
func (s *FileStore) preserveCorruptGroups() error {
	if !s.keepGroups {
		return nil
	}
	path := filepath.Join(s.dir, groupsFileName)
	if err := os.Rename(path, path+corruptSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to preserve corrupt %s: %w", groupsFileName, err)
	}
	slog.Warn("corrupt ledger groups file preserved", "path", path+corruptSuffix)
	s.keepGroups = false
	return nil
}

func (s *FileStore) loadCodes() []string {
	path := filepath.Join(s.dir, codesFileName)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		slog.Warn("failed to read ledger codes; starting empty", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	var codes []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			codes = append(codes, line)
		}
	}
	if err := sc.Err(); err != nil {
		slog.Warn("ledger codes file is unreadable; starting empty", "path", path, "error", err)
		return nil
	}
	return codes
}

func (s *FileStore) writeGroups(groups map[string]ledger.Record) error {
	b, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger groups: %w", err)
	}
	return s.writeAtomic(groupsFileName, b)
}

func (s *FileStore) writeCodes(codes []string) error {
	var buf bytes.Buffer
	for _, c := range codes {
		buf.WriteString(c)
		buf.WriteByte('\n')
	}
	return s.writeAtomic(codesFileName, buf.Bytes())
}

func (s *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
