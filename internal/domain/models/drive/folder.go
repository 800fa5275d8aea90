package drive

import (
	"time"
)

// Folder is a directory node. ParentID nil means the owner's implicit root.
type Folder struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	ParentID  *string   `json:"parent_folder_id" db:"parent_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FolderContents is a directory listing with the breadcrumb of the listed folder.
type FolderContents struct {
	Folder  *Folder     `json:"folder,omitempty"` // nil for root
	Folders []Folder    `json:"folders"`
	Files   []File      `json:"files"`
	Path    []PathEntry `json:"path"`
}
