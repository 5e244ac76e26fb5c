package domain

// Note is a titled text entry, mirrored as an element of notes.json.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	DateAdded string `json:"dateAdded"`
	FolderID  string `json:"folderId,omitempty"`
}
