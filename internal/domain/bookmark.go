package domain

// Bookmark is a saved link.
//
// It is mirrored remotely as an element of bookmarks.json, so the JSON
// names below are part of the wire format and must not change.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned on add and never changes afterwards.
	ID string `json:"id"`

	// DateAdded is the creation day (YYYY-MM-DD). Preserved by edits.
	DateAdded string `json:"dateAdded"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`

	// Notes are free-form personal notes attached to the link.
	Notes string `json:"notes,omitempty"`

	// Tags are lowercase and unique, kept in insertion order.
	Tags []string `json:"tags"`

	// Favicon is an optional emoji of at most two characters.
	Favicon string `json:"favicon,omitempty"`

	// ─────────────────────────────
	// Placement
	// ─────────────────────────────

	// FolderID always references an existing folder once stored.
	FolderID string `json:"folderId,omitempty"`
}

// Clone returns a deep copy.
func (b Bookmark) Clone() Bookmark {
	if b.Tags != nil {
		b.Tags = append(make([]string, 0, len(b.Tags)), b.Tags...)
	}
	return b
}
