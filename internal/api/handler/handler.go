package handler

import (
	"github.com/ziyi127/SCS/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Timetable *TimetableHandler
	Course    *CourseHandler
	Subject   *SubjectHandler
	Override  *OverrideHandler
	Weather   *WeatherHandler
	Reminder  *ReminderHandler
	Transfer  *TransferHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Timetable: NewTimetableHandler(svc.Timetable),
		Course:    NewCourseHandler(svc.Timetable),
		Subject:   NewSubjectHandler(svc.Timetable),
		Override:  NewOverrideHandler(svc.Timetable),
		Weather:   NewWeatherHandler(svc.Weather),
		Reminder:  NewReminderHandler(svc.Events, svc.Reminder),
		Transfer:  NewTransferHandler(svc.ImportExport),
	}
}
