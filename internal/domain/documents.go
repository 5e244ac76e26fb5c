package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Names of the three mirrored documents. Each holds a JSON array.
const (
	BookmarksDocument = "bookmarks.json"
	NotesDocument     = "notes.json"
	FoldersDocument   = "folders.json"
)

// Documents lists the document names in push order.
var Documents = []string{BookmarksDocument, NotesDocument, FoldersDocument}

// EncodeDocument serializes one collection of the snapshot.
func (s Snapshot) EncodeDocument(name string) ([]byte, error) {
	var v any
	switch name {
	case BookmarksDocument:
		v = nonNil(s.Bookmarks)
	case NotesDocument:
		v = nonNil(s.Notes)
	case FoldersDocument:
		v = nonNil(s.Folders)
	default:
		return nil, fmt.Errorf("unknown document %q", name)
	}
	return json.MarshalIndent(v, "", "  ")
}

// DecodeDocument parses one collection into the snapshot. Empty or
// whitespace-only content decodes as an empty collection.
func (s *Snapshot) DecodeDocument(name string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("[]")
	}
	switch name {
	case BookmarksDocument:
		var out []Bookmark
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		s.Bookmarks = nonNil(out)
	case NotesDocument:
		var out []Note
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		s.Notes = nonNil(out)
	case FoldersDocument:
		var out []Folder
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		s.Folders = nonNil(out)
	default:
		return fmt.Errorf("unknown document %q", name)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
