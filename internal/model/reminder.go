package model

import "time"

// ReminderKind 提醒类型
type ReminderKind string

const (
	ReminderPreClass      ReminderKind = "pre_class"       // 上课前
	ReminderEndClass      ReminderKind = "end_class"       // 下课前
	ReminderMidClassBreak ReminderKind = "mid_class_break" // 长课中点休息
)

// Title 通知标题
func (k ReminderKind) Title() string {
	switch k {
	case ReminderPreClass:
		return "上课提醒"
	case ReminderEndClass:
		return "下课提醒"
	case ReminderMidClassBreak:
		return "课间休息提醒"
	}
	return "课程提醒"
}

// ReminderEvent 一次提醒，由提醒引擎产生后交给通知接收方
type ReminderEvent struct {
	ID         string       `json:"id"`
	Kind       ReminderKind `json:"kind"`
	Title      string       `json:"title"`
	Occurrence Occurrence   `json:"occurrence"`
	Message    string       `json:"message"`
	Sound      string       `json:"sound"`
	FiredAt    time.Time    `json:"fired_at"`
}
