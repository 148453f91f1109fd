// Package session persists conversation transcripts and metadata to the
// filesystem with atomic writes, opportunistic backups, and tiered corruption
// recovery. A resumed session with partial history beats a crashed CLI, so
// reads never fail on corrupt content; writes never silently lose data.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"amplifier/internal/config"
	errs "amplifier/internal/errors"
	"amplifier/internal/utils"
)

const (
	transcriptFile = "transcript.jsonl"
	metadataFile   = "metadata.json"
	profileFile    = "profile.md"
	backupSuffix   = ".backup"
)

// Message is one transcript entry. Content is schema-open (providers attach
// arbitrary fields), so messages stay as decoded maps rather than structs.
type Message = map[string]any

// Metadata is the session metadata document. Callers rely on session_id,
// created, profile, model and turn_count being present.
type Metadata = map[string]any

// NewMetadata seeds a metadata document with the fields every session needs.
func NewMetadata(sessionID, profile, model string) Metadata {
	return Metadata{
		"session_id": sessionID,
		"created":    time.Now().UTC().Format(time.RFC3339),
		"profile":    profile,
		"model":      model,
		"turn_count": 0,
	}
}

// Store manages session persistence under a base directory, one
// subdirectory per session id. It assumes a single writer per session;
// concurrent CLI invocations writing the same id race last-writer-wins, but
// the atomic rename guarantees readers never observe a half-written file.
type Store struct {
	baseDir string
	logger  *utils.Logger
}

// NewStore creates a store rooted at baseDir. An empty baseDir selects the
// per-project default, ~/.amplifier/projects/<project-slug>/sessions.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		dir, err := config.DefaultSessionsDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default sessions dir: %w", err)
		}
		baseDir = dir
	} else if strings.HasPrefix(baseDir, "~/") {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, baseDir[2:])
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errs.WrapStore("create sessions dir", err)
	}

	return &Store{
		baseDir: baseDir,
		logger:  utils.NewComponentLogger("SessionStore"),
	}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// validateSessionID rejects empty ids and ids that could escape the base
// directory. It runs before any filesystem access.
func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errs.NewValidation("session_id", "cannot be empty")
	}
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return errs.NewValidation("session_id", "%q contains path characters", sessionID)
	}
	return nil
}

// Save persists the transcript and metadata for a session, each written
// atomically and preceded by a best-effort backup of the previous version.
func (s *Store) Save(sessionID string, transcript []Message, metadata Metadata) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	sessionDir := filepath.Join(s.baseDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return errs.WrapStore("create session dir", err)
	}

	if err := s.saveTranscript(sessionDir, transcript); err != nil {
		return err
	}
	if err := s.saveMetadata(sessionDir, metadata); err != nil {
		return err
	}

	s.logger.Debug("Session %s saved successfully", sessionID)
	return nil
}

func (s *Store) saveTranscript(sessionDir string, transcript []Message) error {
	target := filepath.Join(sessionDir, transcriptFile)
	s.backupIfExists(target)

	return atomicWrite(target, "transcript_", "failed to save transcript", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, message := range transcript {
			// system/developer messages are provider scaffolding, not part
			// of the conversation; they never reach disk.
			if role, _ := message["role"].(string); role == "system" || role == "developer" {
				continue
			}
			if err := enc.Encode(s.sanitizeMessage(message)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) saveMetadata(sessionDir string, metadata Metadata) error {
	target := filepath.Join(sessionDir, metadataFile)
	s.backupIfExists(target)

	return atomicWrite(target, "metadata_", "failed to save metadata", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(metadata)
	})
}

// backupIfExists copies target to its .backup sibling. Failures are logged
// and skipped: a stale backup must not block saving fresh state.
func (s *Store) backupIfExists(target string) {
	if _, err := os.Stat(target); err != nil {
		return
	}
	if err := copyFile(target, target+backupSuffix); err != nil {
		s.logger.Warn("Failed to create backup of %s: %v", filepath.Base(target), err)
	}
}

// atomicWrite writes via a temp file in the destination directory (same
// filesystem, so the rename is atomic) and renames over the target. On any
// failure the temp file is removed and the destination is untouched.
func atomicWrite(target, prefix, errMsg string, write func(io.Writer) error) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, prefix+"*.tmp")
	if err != nil {
		return errs.WrapStore(errMsg, err)
	}
	tmpPath := tmp.Name()

	err = write(tmp)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpPath, target)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return errs.WrapStore(errMsg, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// Load reads a session back. A missing session is a NotFoundError; corrupted
// content never raises and instead degrades through the recovery tiers
// (primary, backup, safe default).
func (s *Store) Load(sessionID string) ([]Message, Metadata, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, nil, err
	}

	sessionDir := filepath.Join(s.baseDir, sessionID)
	if info, err := os.Stat(sessionDir); err != nil || !info.IsDir() {
		return nil, nil, errs.NewNotFound("session", sessionID)
	}

	transcript := s.loadTranscript(sessionDir)
	metadata := s.loadMetadata(sessionDir)

	s.logger.Debug("Session %s loaded successfully", sessionID)
	return transcript, metadata, nil
}

func (s *Store) loadTranscript(sessionDir string) []Message {
	primary := filepath.Join(sessionDir, transcriptFile)
	backup := primary + backupSuffix

	if transcript, err := readTranscript(primary); err == nil {
		return transcript
	} else if !os.IsNotExist(err) {
		s.logger.Warn("Failed to load transcript, trying backup: %v", err)
	}

	if transcript, err := readTranscript(backup); err == nil {
		s.logger.Info("Loaded transcript from backup")
		return transcript
	} else if !os.IsNotExist(err) {
		s.logger.Error("Backup transcript also corrupted: %v", err)
	}

	s.logger.Warn("Both transcript files unreadable, returning empty transcript")
	return []Message{}
}

func readTranscript(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	transcript := []Message{}
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			var message Message
			if jsonErr := json.Unmarshal([]byte(trimmed), &message); jsonErr != nil {
				return nil, fmt.Errorf("parse transcript line: %w", jsonErr)
			}
			transcript = append(transcript, message)
		}
		if err == io.EOF {
			return transcript, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *Store) loadMetadata(sessionDir string) Metadata {
	primary := filepath.Join(sessionDir, metadataFile)
	backup := primary + backupSuffix

	if metadata, err := readMetadata(primary); err == nil {
		return metadata
	} else if !os.IsNotExist(err) {
		s.logger.Warn("Failed to load metadata, trying backup: %v", err)
	}

	if metadata, err := readMetadata(backup); err == nil {
		s.logger.Info("Loaded metadata from backup")
		return metadata
	} else if !os.IsNotExist(err) {
		s.logger.Error("Backup metadata also corrupted: %v", err)
	}

	s.logger.Warn("Both metadata files unreadable, returning minimal metadata")
	return Metadata{
		"session_id":    filepath.Base(sessionDir),
		"recovered":     true,
		"recovery_time": time.Now().UTC().Format(time.RFC3339),
	}
}

func readMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return metadata, nil
}

// Exists reports whether the session directory is present. Invalid ids
// return false rather than an error.
func (s *Store) Exists(sessionID string) bool {
	if validateSessionID(sessionID) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.baseDir, sessionID))
	return err == nil && info.IsDir()
}

// ListSessions returns session ids sorted newest-modified-first. Entries
// whose modification time cannot be read sort as oldest.
func (s *Store) ListSessions() []string {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil
	}

	type sessionInfo struct {
		id    string
		mtime time.Time
	}
	sessions := make([]sessionInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		var mtime time.Time
		if info, err := entry.Info(); err == nil {
			mtime = info.ModTime()
		} else {
			s.logger.Warn("Failed to stat session %s: %v", entry.Name(), err)
		}
		sessions = append(sessions, sessionInfo{id: entry.Name(), mtime: mtime})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].mtime.After(sessions[j].mtime)
	})

	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.id
	}
	return ids
}

// Delete removes a session directory and everything in it.
func (s *Store) Delete(sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	sessionDir := filepath.Join(s.baseDir, sessionID)
	if info, err := os.Stat(sessionDir); err != nil || !info.IsDir() {
		return errs.NewNotFound("session", sessionID)
	}
	if err := os.RemoveAll(sessionDir); err != nil {
		return errs.WrapStore("delete session", err)
	}
	return nil
}

// CleanupOldSessions removes sessions whose directory was last modified
// strictly before now-days. Individual removal failures are logged and the
// batch continues. Returns the number of sessions removed.
func (s *Store) CleanupOldSessions(days int) (int, error) {
	if days < 0 {
		return 0, errs.NewValidation("days", "must be non-negative")
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errs.WrapStore("list sessions", err)
	}

	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Error("Failed to stat session %s: %v", entry.Name(), err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.baseDir, entry.Name())); err != nil {
			s.logger.Error("Failed to remove session %s: %v", entry.Name(), err)
			continue
		}
		s.logger.Info("Removed old session: %s", entry.Name())
		removed++
	}

	if removed > 0 {
		s.logger.Info("Cleaned up %d old sessions", removed)
	}
	return removed, nil
}

// SaveProfile persists a snapshot of the resolved profile as YAML
// frontmatter plus a short description, so a resumed session can show what
// configuration it was launched with.
func (s *Store) SaveProfile(sessionID string, profile map[string]any) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	sessionDir := filepath.Join(s.baseDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return errs.WrapStore("create session dir", err)
	}

	target := filepath.Join(sessionDir, profileFile)
	err := atomicWrite(target, "profile_", "failed to save profile", func(w io.Writer) error {
		if _, err := io.WriteString(w, "---\n"); err != nil {
			return err
		}
		data, err := yaml.Marshal(profile)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "---\n\nProfile snapshot for session %s\n", sessionID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Profile saved for session %s", sessionID)
	return nil
}
