package model

// Schedule day → 周类型 → 课程列表，由课程列表重建，不单独维护
type Schedule map[string]map[WeekVariant][]Course

// Overrides 按日期的临时调整
type Overrides struct {
	SemesterStartDate string                  `json:"semester_start_date,omitempty"`
	SpecialDates      map[string]WeekVariant  `json:"special_dates"`
	TempWeekTypes     map[string]WeekVariant  `json:"temp_week_types"`
	TempSchedules     map[string][]Occurrence `json:"temp_schedule"`
}

// Snapshot 课表的完整持久化快照
type Snapshot struct {
	Courses        []Course               `json:"courses"`
	Schedule       Schedule               `json:"schedule"`
	SubjectLibrary map[string]SubjectInfo `json:"subject_library"`
	Overrides      Overrides              `json:"overrides"`
}

// NewSnapshot 创建空快照，所有 map 均已初始化
func NewSnapshot() *Snapshot {
	s := &Snapshot{Courses: []Course{}}
	s.EnsureInit()
	return s
}

// EnsureInit 补齐 nil 集合（旧数据或反序列化后调用）
func (s *Snapshot) EnsureInit() {
	if s.Courses == nil {
		s.Courses = []Course{}
	}
	if s.SubjectLibrary == nil {
		s.SubjectLibrary = make(map[string]SubjectInfo)
	}
	if s.Overrides.SpecialDates == nil {
		s.Overrides.SpecialDates = make(map[string]WeekVariant)
	}
	if s.Overrides.TempWeekTypes == nil {
		s.Overrides.TempWeekTypes = make(map[string]WeekVariant)
	}
	if s.Overrides.TempSchedules == nil {
		s.Overrides.TempSchedules = make(map[string][]Occurrence)
	}
	s.Schedule = BuildSchedule(s.Courses)
}

// Clone 深拷贝
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Courses:        append([]Course{}, s.Courses...),
		SubjectLibrary: make(map[string]SubjectInfo, len(s.SubjectLibrary)),
		Overrides: Overrides{
			SemesterStartDate: s.Overrides.SemesterStartDate,
			SpecialDates:      make(map[string]WeekVariant, len(s.Overrides.SpecialDates)),
			TempWeekTypes:     make(map[string]WeekVariant, len(s.Overrides.TempWeekTypes)),
			TempSchedules:     make(map[string][]Occurrence, len(s.Overrides.TempSchedules)),
		},
	}
	for k, v := range s.SubjectLibrary {
		c.SubjectLibrary[k] = v
	}
	for k, v := range s.Overrides.SpecialDates {
		c.Overrides.SpecialDates[k] = v
	}
	for k, v := range s.Overrides.TempWeekTypes {
		c.Overrides.TempWeekTypes[k] = v
	}
	for k, v := range s.Overrides.TempSchedules {
		c.Overrides.TempSchedules[k] = append([]Occurrence{}, v...)
	}
	c.Schedule = BuildSchedule(c.Courses)
	return c
}

// BuildSchedule 由课程列表重建 schedule，七天三种周类型全部存在
func BuildSchedule(courses []Course) Schedule {
	sched := make(Schedule, len(Weekdays))
	for _, d := range Weekdays {
		sched[d.String()] = map[WeekVariant][]Course{
			WeekOdd:  {},
			WeekEven: {},
			WeekBoth: {},
		}
	}
	for _, c := range courses {
		day, ok := sched[c.Day.String()]
		if !ok {
			continue
		}
		day[c.WeekType] = append(day[c.WeekType], c)
	}
	return sched
}
