package events

import (
	"context"
	"log/slog"
)

// AuditLogger writes one structured log line per event
func AuditLogger(logger *slog.Logger) Handler {
	return func(ctx context.Context, evt Event) error {
		attrs := []any{
			"kind", evt.Kind,
			"owner_id", evt.OwnerID,
			"item_id", evt.ItemID,
			"name", evt.Name,
			"parent_folder_id", evt.ParentID,
		}
		switch evt.Kind {
		case FileRenamed, FolderRenamed:
			attrs = append(attrs, "old_name", evt.OldName)
		case FileMoved, FolderMoved:
			attrs = append(attrs, "old_parent_folder_id", evt.OldParent)
		case FileUploaded:
			attrs = append(attrs, "size", evt.Size)
		}
		logger.InfoContext(ctx, "audit", attrs...)
		return nil
	}
}
