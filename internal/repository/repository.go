package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ziyi127/SCS/config"
	"github.com/ziyi127/SCS/internal/model"
)

// ErrSnapshotNotFound 尚未保存过任何课表数据
var ErrSnapshotNotFound = errors.New("课表数据不存在")

// SnapshotRepository 课表快照数据访问接口
// 每次修改后整体保存，读取时一次性加载
type SnapshotRepository interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Save(ctx context.Context, snap *model.Snapshot) error
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Snapshot SnapshotRepository
}

// NewRepository 按存储驱动创建 Repository 聚合
// driver=file 时 db 可为 nil
func NewRepository(cfg *config.StorageConfig, db *gorm.DB) (*Repository, error) {
	switch cfg.Driver {
	case config.StorageFile:
		return &Repository{Snapshot: NewFileSnapshotRepo(cfg.FilePath)}, nil
	case config.StorageSQLite, config.StoragePostgres:
		if db == nil {
			return nil, fmt.Errorf("存储驱动 %s 需要数据库连接", cfg.Driver)
		}
		return &Repository{Snapshot: NewDBSnapshotRepo(db)}, nil
	}
	return nil, fmt.Errorf("不支持的存储驱动: %s", cfg.Driver)
}
