package domain

const (
	// DefaultFolderID is the reserved folder that absorbs items whose
	// folder reference is missing or dangling. It cannot be deleted.
	DefaultFolderID = "general"
	// DefaultFolderName is the display name of the reserved folder.
	DefaultFolderName = "General"
)

// FolderPalette lists the preset folder colors. Any other value is
// accepted as a freeform color.
var FolderPalette = []string{
	"#3B82F6", "#EF4444", "#10B981", "#F59E0B",
	"#8B5CF6", "#06B6D4", "#F97316", "#84CC16",
	"#EC4899", "#6366F1", "#14B8A6", "#F59E0B",
}

// Folder groups bookmarks and notes, mirrored as an element of folders.json.
type Folder struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	DateCreated string `json:"dateCreated"`
}

// DefaultFolder builds the reserved folder record.
func DefaultFolder(dateCreated string) Folder {
	return Folder{
		ID:          DefaultFolderID,
		Name:        DefaultFolderName,
		Color:       FolderPalette[0],
		DateCreated: dateCreated,
	}
}
