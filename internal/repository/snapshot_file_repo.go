package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/ziyi127/SCS/internal/model"
)

// fileSnapshot 磁盘格式。兼容旧版把覆盖记录平铺在顶层的写法
type fileSnapshot struct {
	model.Snapshot

	LegacySemesterStart string                        `json:"semester_start_date,omitempty"`
	LegacySpecialDates  map[string]model.WeekVariant  `json:"special_dates,omitempty"`
	LegacyTempWeekTypes map[string]model.WeekVariant  `json:"temp_week_types,omitempty"`
	LegacyTempSchedule  map[string][]model.Occurrence `json:"temp_schedule,omitempty"`
}

type fileSnapshotRepo struct {
	path string
	mu   sync.Mutex
}

// NewFileSnapshotRepo 创建基于 JSON 文件的快照存储
func NewFileSnapshotRepo(path string) SnapshotRepository {
	return &fileSnapshotRepo{path: path}
}

func (r *fileSnapshotRepo) Load(_ context.Context) (*model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("读取课表文件失败: %w", err)
	}

	var fs fileSnapshot
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("解析课表文件失败: %w", err)
	}

	snap := fs.Snapshot
	ov := &snap.Overrides
	if ov.SemesterStartDate == "" {
		ov.SemesterStartDate = fs.LegacySemesterStart
	}
	if len(ov.SpecialDates) == 0 {
		ov.SpecialDates = fs.LegacySpecialDates
	}
	if len(ov.TempWeekTypes) == 0 {
		ov.TempWeekTypes = fs.LegacyTempWeekTypes
	}
	if len(ov.TempSchedules) == 0 {
		ov.TempSchedules = fs.LegacyTempSchedule
	}
	snap.EnsureInit()
	return &snap, nil
}

// Save 先写同目录临时文件再 rename，避免写一半的文件覆盖旧数据
func (r *fileSnapshotRepo) Save(_ context.Context, snap *model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("序列化课表失败: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("创建课表目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".course-data-*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("刷新临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("替换课表文件失败: %w", err)
	}
	return nil
}
