package state

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
)

var (
	// ErrNotFound is returned when an id does not match any stored item.
	ErrNotFound = errors.New("item not found")
	// ErrReservedFolder is returned when deleting the default folder.
	ErrReservedFolder = errors.New("the default folder cannot be deleted")
	// ErrInvalid is returned when a required field is missing.
	ErrInvalid = errors.New("invalid item")
)

// Store owns the canonical in-memory collections.
//
// All operations are synchronous. Mutations never sync by themselves:
// callers must request a push once a mutation returns.
type Store struct {
	mu        sync.RWMutex
	bookmarks []domain.Bookmark
	notes     []domain.Note
	folders   []domain.Folder

	now      func() time.Time
	lastID   int64
	revision uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for ids and dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Revision is incremented by every successful mutation and by Replace.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot returns a deep copy of the current collections.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Bookmarks: s.bookmarks,
		Notes:     s.notes,
		Folders:   s.folders,
	}.Clone()
}

// Replace swaps all collections for the given snapshot, used when loading
// from the remote store or the local cache. Dangling folder references are
// coerced to the default folder so the loaded state honors the same
// invariants as a mutated one.
func (s *Store) Replace(snap domain.Snapshot) {
	snap = snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(snap)
}

// ReplaceIfRevision replaces the collections only while the revision is
// still rev, i.e. nothing changed them since rev was read.
func (s *Store) ReplaceIfRevision(snap domain.Snapshot, rev uint64) bool {
	snap = snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != rev {
		return false
	}
	s.replaceLocked(snap)
	return true
}

func (s *Store) replaceLocked(snap domain.Snapshot) {
	s.bookmarks = snap.Bookmarks
	s.notes = snap.Notes
	s.folders = snap.Folders

	for i := range s.bookmarks {
		s.bookmarks[i].Tags = domain.NormalizeTags(s.bookmarks[i].Tags)
		s.bookmarks[i].FolderID = s.coerceFolderLocked(s.bookmarks[i].FolderID)
		s.observeIDLocked(s.bookmarks[i].ID)
	}
	for i := range s.notes {
		s.notes[i].FolderID = s.coerceFolderLocked(s.notes[i].FolderID)
		s.observeIDLocked(s.notes[i].ID)
	}
	for _, f := range s.folders {
		s.observeIDLocked(f.ID)
	}
	s.revision++
}

// ─────────────────────────────────────────────────────────────────
// Bookmarks
// ─────────────────────────────────────────────────────────────────

// AddBookmark stores a new bookmark and returns it with its assigned
// id, date and normalized fields.
func (s *Store) AddBookmark(in domain.Bookmark) (domain.Bookmark, error) {
	b, err := normalizeBookmark(in)
	if err != nil {
		return domain.Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = s.nextIDLocked()
	b.DateAdded = s.today()
	b.FolderID = s.coerceFolderLocked(b.FolderID)

	s.bookmarks = slices.Insert(s.bookmarks, 0, b)
	s.revision++
	return b.Clone(), nil
}

// EditBookmark replaces the editable fields of a bookmark. The id and
// dateAdded of the stored record are preserved.
func (s *Store) EditBookmark(id string, in domain.Bookmark) (domain.Bookmark, error) {
	b, err := normalizeBookmark(in)
	if err != nil {
		return domain.Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.bookmarks, func(x domain.Bookmark) bool { return x.ID == id })
	if i < 0 {
		return domain.Bookmark{}, fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}

	b.ID = s.bookmarks[i].ID
	b.DateAdded = s.bookmarks[i].DateAdded
	b.FolderID = s.coerceFolderLocked(b.FolderID)

	s.bookmarks[i] = b
	s.revision++
	return b.Clone(), nil
}

// DeleteBookmark removes a bookmark.
func (s *Store) DeleteBookmark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.bookmarks)
	s.bookmarks = slices.DeleteFunc(s.bookmarks, func(x domain.Bookmark) bool { return x.ID == id })
	if len(s.bookmarks) == n {
		return fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}
	s.revision++
	return nil
}

// Bookmark returns a copy of the bookmark with the given id.
func (s *Store) Bookmark(id string) (domain.Bookmark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bookmarks {
		if b.ID == id {
			return b.Clone(), true
		}
	}
	return domain.Bookmark{}, false
}

func normalizeBookmark(b domain.Bookmark) (domain.Bookmark, error) {
	b.URL = strings.TrimSpace(b.URL)
	if b.URL == "" {
		return domain.Bookmark{}, fmt.Errorf("bookmark url is required: %w", ErrInvalid)
	}
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		b.Title = titleFromURL(b.URL)
	}
	b.Description = strings.TrimSpace(b.Description)
	b.Notes = strings.TrimSpace(b.Notes)
	b.Tags = domain.NormalizeTags(b.Tags)
	b.Favicon = domain.NormalizeFavicon(b.Favicon)
	b.FolderID = strings.TrimSpace(b.FolderID)
	return b, nil
}

// titleFromURL falls back to the hostname, or the raw URL when it does
// not parse into one.
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

// ─────────────────────────────────────────────────────────────────
// Notes
// ─────────────────────────────────────────────────────────────────

// AddNote stores a new note.
func (s *Store) AddNote(in domain.Note) (domain.Note, error) {
	n, err := normalizeNote(in)
	if err != nil {
		return domain.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = s.nextIDLocked()
	n.DateAdded = s.today()
	n.FolderID = s.coerceFolderLocked(n.FolderID)

	s.notes = slices.Insert(s.notes, 0, n)
	s.revision++
	return n, nil
}

// EditNote replaces the editable fields of a note.
func (s *Store) EditNote(id string, in domain.Note) (domain.Note, error) {
	n, err := normalizeNote(in)
	if err != nil {
		return domain.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.notes, func(x domain.Note) bool { return x.ID == id })
	if i < 0 {
		return domain.Note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}

	n.ID = s.notes[i].ID
	n.DateAdded = s.notes[i].DateAdded
	n.FolderID = s.coerceFolderLocked(n.FolderID)

	s.notes[i] = n
	s.revision++
	return n, nil
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.notes)
	s.notes = slices.DeleteFunc(s.notes, func(x domain.Note) bool { return x.ID == id })
	if len(s.notes) == n {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	s.revision++
	return nil
}

// Note returns the note with the given id.
func (s *Store) Note(id string) (domain.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notes {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Note{}, false
}

func normalizeNote(n domain.Note) (domain.Note, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return domain.Note{}, fmt.Errorf("note title is required: %w", ErrInvalid)
	}
	n.FolderID = strings.TrimSpace(n.FolderID)
	return n, nil
}

// ─────────────────────────────────────────────────────────────────
// Folders
// ─────────────────────────────────────────────────────────────────

// AddFolder stores a new folder. An empty color takes the first palette entry.
func (s *Store) AddFolder(in domain.Folder) (domain.Folder, error) {
	f, err := normalizeFolder(in)
	if err != nil {
		return domain.Folder{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = s.nextIDLocked()
	f.DateCreated = s.today()

	s.ensureDefaultFolderLocked()
	s.folders = slices.Insert(s.folders, 0, f)
	s.revision++
	return f, nil
}

// EditFolder renames or recolors a folder. The default folder may be
// edited but keeps its id.
func (s *Store) EditFolder(id string, in domain.Folder) (domain.Folder, error) {
	f, err := normalizeFolder(in)
	if err != nil {
		return domain.Folder{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.folders, func(x domain.Folder) bool { return x.ID == id })
	if i < 0 {
		return domain.Folder{}, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}

	f.ID = s.folders[i].ID
	f.DateCreated = s.folders[i].DateCreated

	s.folders[i] = f
	s.revision++
	return f, nil
}

// DeleteFolder moves every bookmark and note of the folder to the default
// folder, then removes the folder. Both steps happen under one lock.
func (s *Store) DeleteFolder(id string) error {
	if id == domain.DefaultFolderID {
		return ErrReservedFolder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.folders, func(x domain.Folder) bool { return x.ID == id })
	if i < 0 {
		return fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}

	s.ensureDefaultFolderLocked()
	for j := range s.bookmarks {
		if s.bookmarks[j].FolderID == id {
			s.bookmarks[j].FolderID = domain.DefaultFolderID
		}
	}
	for j := range s.notes {
		if s.notes[j].FolderID == id {
			s.notes[j].FolderID = domain.DefaultFolderID
		}
	}

	s.folders = slices.DeleteFunc(s.folders, func(x domain.Folder) bool { return x.ID == id })
	s.revision++
	return nil
}

// Folder returns the folder with the given id.
func (s *Store) Folder(id string) (domain.Folder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.folders {
		if f.ID == id {
			return f, true
		}
	}
	return domain.Folder{}, false
}

func normalizeFolder(f domain.Folder) (domain.Folder, error) {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return domain.Folder{}, fmt.Errorf("folder name is required: %w", ErrInvalid)
	}
	f.Color = strings.TrimSpace(f.Color)
	if f.Color == "" {
		f.Color = domain.FolderPalette[0]
	}
	return f, nil
}

// ─────────────────────────────────────────────────────────────────
// Integrity helpers (callers hold s.mu)
// ─────────────────────────────────────────────────────────────────

// coerceFolderLocked returns id when it names an existing folder and the
// default folder otherwise, creating the default folder if needed.
func (s *Store) coerceFolderLocked(id string) string {
	s.ensureDefaultFolderLocked()
	if id != "" && s.hasFolderLocked(id) {
		return id
	}
	return domain.DefaultFolderID
}

func (s *Store) hasFolderLocked(id string) bool {
	return slices.ContainsFunc(s.folders, func(f domain.Folder) bool { return f.ID == id })
}

func (s *Store) ensureDefaultFolderLocked() {
	if s.hasFolderLocked(domain.DefaultFolderID) {
		return
	}
	s.folders = append(s.folders, domain.DefaultFolder(s.today()))
}

// nextIDLocked returns a millisecond timestamp string, bumped past the
// last issued or loaded id so ids stay unique and increasing.
func (s *Store) nextIDLocked() string {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *Store) observeIDLocked(id string) {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > s.lastID {
		s.lastID = n
	}
}

func (s *Store) today() string {
	return s.now().Format(domain.DateLayout)
}
