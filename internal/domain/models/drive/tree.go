package drive

import "time"

// FolderTreeNode represents a folder in the tree with nested children
type FolderTreeNode struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	ParentID  *string           `json:"parent_folder_id"`
	CreatedAt time.Time         `json:"created_at"`
	Children  []*FolderTreeNode `json:"children"`
}

// PathEntry is one breadcrumb element, ordered root to leaf.
type PathEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NameCollision identifies the item already holding a name in a directory.
type NameCollision struct {
	Kind string // "file" or "folder"
	ID   string
}
