package drive

import (
	"time"
)

// File is a leaf whose content lives in the remote transport.
// The remote handles never leave the server.
type File struct {
	ID               string    `json:"id" db:"id"`
	OwnerID          string    `json:"owner_id" db:"owner_id"`
	ParentID         *string   `json:"parent_folder_id" db:"parent_id"`
	Name             string    `json:"name" db:"name"`
	Size             int64     `json:"size" db:"size"`
	MimeType         string    `json:"mime_type" db:"mime_type"`
	RemoteMessageRef string    `json:"-" db:"remote_message_ref"`
	RemoteBlobRef    *string   `json:"-" db:"remote_blob_ref"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// BlobRef returns the fetch handle, or false when the remote write never reported one.
func (f *File) BlobRef() (string, bool) {
	if f.RemoteBlobRef == nil || *f.RemoteBlobRef == "" {
		return "", false
	}
	return *f.RemoteBlobRef, true
}

// DownloadLink is a transient URL for a file's content.
type DownloadLink struct {
	File *File  `json:"file"`
	URL  string `json:"url"`
}
