package model

import "gorm.io/datatypes"

// 数据库存储驱动下的行模型。快照整体写入，行模型只在 repository 内部使用。

// CourseRecord 课程表，对应 courses
type CourseRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"             json:"id"`
	Position  int    `gorm:"not null"                             json:"position"` // 保持课程列表原始顺序
	Name      string `gorm:"type:varchar(100);not null"           json:"name"`
	Color     string `gorm:"type:varchar(16);not null"            json:"color"`
	Teacher   string `gorm:"type:varchar(50);not null;default:''" json:"teacher"`
	Notes     string `gorm:"type:text;not null;default:''"        json:"notes"`
	StartTime string `gorm:"type:varchar(5);not null"             json:"start_time"`
	EndTime   string `gorm:"type:varchar(5);not null"             json:"end_time"`
	DayOfWeek int    `gorm:"type:smallint;not null"               json:"day_of_week"` // 1-7
	WeekType  string `gorm:"type:varchar(10);not null"            json:"week_type"`   // odd | even | both
	Equipment string `gorm:"type:varchar(200);not null;default:''" json:"equipment"`
	Classroom string `gorm:"type:varchar(50);not null;default:''" json:"classroom"`
	BaseModel
}

// TableName 指定表名
func (CourseRecord) TableName() string { return "courses" }

// SubjectRecord 科目库，对应 subjects
type SubjectRecord struct {
	Name      string `gorm:"type:varchar(100);primaryKey"          json:"name"`
	Color     string `gorm:"type:varchar(16);not null"             json:"color"`
	Teacher   string `gorm:"type:varchar(50);not null;default:''"  json:"teacher"`
	Notes     string `gorm:"type:text;not null;default:''"         json:"notes"`
	Equipment string `gorm:"type:varchar(200);not null;default:''" json:"equipment"`
	BaseModel
}

// TableName 指定表名
func (SubjectRecord) TableName() string { return "subjects" }

// 周次覆盖类型
const (
	OverrideSpecial = "special"
	OverrideTemp    = "temp"
)

// WeekOverrideRecord 周次覆盖，对应 week_overrides
type WeekOverrideRecord struct {
	Date     string `gorm:"type:varchar(10);primaryKey" json:"date"`
	Kind     string `gorm:"type:varchar(10);primaryKey" json:"kind"` // special | temp
	WeekType string `gorm:"type:varchar(10);not null"   json:"week_type"`
	BaseModel
}

// TableName 指定表名
func (WeekOverrideRecord) TableName() string { return "week_overrides" }

// TempScheduleRecord 临时整日课表，对应 temp_schedules
type TempScheduleRecord struct {
	Date        string         `gorm:"type:varchar(10);primaryKey" json:"date"`
	Occurrences datatypes.JSON `gorm:"not null"                    json:"occurrences"`
	BaseModel
}

// TableName 指定表名
func (TempScheduleRecord) TableName() string { return "temp_schedules" }

// SnapshotMetaRecord 快照元数据（单行），对应 snapshot_meta
type SnapshotMetaRecord struct {
	ID                int    `gorm:"primaryKey"                         json:"id"`
	SemesterStartDate string `gorm:"type:varchar(32);not null;default:''" json:"semester_start_date"`
	BaseModel
}

// TableName 指定表名
func (SnapshotMetaRecord) TableName() string { return "snapshot_meta" }
