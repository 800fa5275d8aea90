package drive

import (
	"context"
	"log/slog"
	"sort"

	models "tgdrive/internal/domain/models/drive"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	driveSvc "tgdrive/internal/domain/services/drive"
)

type treeService struct {
	folderRepo driveRepo.FolderRepository
	logger     *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(folderRepo driveRepo.FolderRepository, logger *slog.Logger) driveSvc.TreeService {
	return &treeService{folderRepo: folderRepo, logger: logger}
}

// GetTree builds the owner's folder forest: roots at the top level, children
// nested and sorted by name
func (s *treeService) GetTree(ctx context.Context, ownerID string) ([]*models.FolderTreeNode, error) {
	folders, err := s.folderRepo.GetAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// Pass 1: a node per folder
	nodes := make(map[string]*models.FolderTreeNode, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &models.FolderTreeNode{
			ID:        f.ID,
			Name:      f.Name,
			ParentID:  f.ParentID,
			CreatedAt: f.CreatedAt,
			Children:  []*models.FolderTreeNode{},
		}
	}

	// Pass 2: attach to parents
	roots := []*models.FolderTreeNode{}
	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*f.ParentID]
		if !ok {
			s.logger.Warn("folder parent missing, listing at root",
				"id", f.ID,
				"parent_folder_id", *f.ParentID,
				"owner_id", ownerID,
			)
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Pass 3: order every level by name
	sortNodes(roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}

	return roots, nil
}

func sortNodes(nodes []*models.FolderTreeNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
}
