package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ziyi127/SCS/internal/model"
)

// snapshotMetaID snapshot_meta 只有一行
const snapshotMetaID = 1

type dbSnapshotRepo struct {
	db *gorm.DB
}

// NewDBSnapshotRepo 创建基于 gorm 的快照存储（sqlite / postgres）
func NewDBSnapshotRepo(db *gorm.DB) SnapshotRepository {
	return &dbSnapshotRepo{db: db}
}

func (r *dbSnapshotRepo) Load(ctx context.Context) (*model.Snapshot, error) {
	db := r.db.WithContext(ctx)

	var meta model.SnapshotMetaRecord
	if err := db.First(&meta, snapshotMetaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	var courses []model.CourseRecord
	if err := db.Order("position ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	var subjects []model.SubjectRecord
	if err := db.Find(&subjects).Error; err != nil {
		return nil, err
	}
	var overrides []model.WeekOverrideRecord
	if err := db.Find(&overrides).Error; err != nil {
		return nil, err
	}
	var temps []model.TempScheduleRecord
	if err := db.Find(&temps).Error; err != nil {
		return nil, err
	}

	snap := model.NewSnapshot()
	snap.Overrides.SemesterStartDate = meta.SemesterStartDate
	for _, c := range courses {
		snap.Courses = append(snap.Courses, fromCourseRecord(c))
	}
	for _, s := range subjects {
		snap.SubjectLibrary[s.Name] = model.SubjectInfo{
			Color:     s.Color,
			Teacher:   s.Teacher,
			Notes:     s.Notes,
			Equipment: s.Equipment,
		}
	}
	for _, o := range overrides {
		switch o.Kind {
		case model.OverrideSpecial:
			snap.Overrides.SpecialDates[o.Date] = model.WeekVariant(o.WeekType)
		case model.OverrideTemp:
			snap.Overrides.TempWeekTypes[o.Date] = model.WeekVariant(o.WeekType)
		}
	}
	for _, t := range temps {
		var occ []model.Occurrence
		if err := json.Unmarshal(t.Occurrences, &occ); err != nil {
			return nil, fmt.Errorf("解析临时课表 %s 失败: %w", t.Date, err)
		}
		snap.Overrides.TempSchedules[t.Date] = occ
	}
	snap.EnsureInit()
	return snap, nil
}

// Save 在单个事务中全量替换：先删除旧数据，再批量插入新数据
func (r *dbSnapshotRepo) Save(ctx context.Context, snap *model.Snapshot) error {
	courses := make([]model.CourseRecord, 0, len(snap.Courses))
	for i, c := range snap.Courses {
		courses = append(courses, toCourseRecord(i, c))
	}

	subjects := make([]model.SubjectRecord, 0, len(snap.SubjectLibrary))
	for name, info := range snap.SubjectLibrary {
		subjects = append(subjects, model.SubjectRecord{
			Name:      name,
			Color:     info.Color,
			Teacher:   info.Teacher,
			Notes:     info.Notes,
			Equipment: info.Equipment,
		})
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })

	var overrides []model.WeekOverrideRecord
	for date, v := range snap.Overrides.SpecialDates {
		overrides = append(overrides, model.WeekOverrideRecord{Date: date, Kind: model.OverrideSpecial, WeekType: string(v)})
	}
	for date, v := range snap.Overrides.TempWeekTypes {
		overrides = append(overrides, model.WeekOverrideRecord{Date: date, Kind: model.OverrideTemp, WeekType: string(v)})
	}

	temps := make([]model.TempScheduleRecord, 0, len(snap.Overrides.TempSchedules))
	for date, occ := range snap.Overrides.TempSchedules {
		payload, err := json.Marshal(occ)
		if err != nil {
			return fmt.Errorf("序列化临时课表 %s 失败: %w", date, err)
		}
		temps = append(temps, model.TempScheduleRecord{Date: date, Occurrences: datatypes.JSON(payload)})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 快照语义：无需保留旧行
		for _, table := range []interface{}{
			&model.CourseRecord{},
			&model.SubjectRecord{},
			&model.WeekOverrideRecord{},
			&model.TempScheduleRecord{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				return err
			}
		}
		if len(courses) > 0 {
			if err := tx.Create(&courses).Error; err != nil {
				return err
			}
		}
		if len(subjects) > 0 {
			if err := tx.Create(&subjects).Error; err != nil {
				return err
			}
		}
		if len(overrides) > 0 {
			if err := tx.Create(&overrides).Error; err != nil {
				return err
			}
		}
		if len(temps) > 0 {
			if err := tx.Create(&temps).Error; err != nil {
				return err
			}
		}
		meta := model.SnapshotMetaRecord{ID: snapshotMetaID, SemesterStartDate: snap.Overrides.SemesterStartDate}
		return tx.Save(&meta).Error
	})
}

// ── 行模型转换 ──

func toCourseRecord(pos int, c model.Course) model.CourseRecord {
	return model.CourseRecord{
		Position:  pos,
		Name:      c.Name,
		Color:     c.Color,
		Teacher:   c.Teacher,
		Notes:     c.Notes,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		DayOfWeek: int(c.Day),
		WeekType:  string(c.WeekType),
		Equipment: c.Equipment,
		Classroom: c.Classroom,
	}
}

func fromCourseRecord(r model.CourseRecord) model.Course {
	return model.Course{
		Name:      r.Name,
		Color:     r.Color,
		Teacher:   r.Teacher,
		Notes:     r.Notes,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Day:       model.Weekday(r.DayOfWeek),
		WeekType:  model.WeekVariant(r.WeekType),
		Equipment: r.Equipment,
		Classroom: r.Classroom,
	}
}
