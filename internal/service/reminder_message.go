package service

import (
	"fmt"
	"strings"

	"github.com/ziyi127/SCS/internal/model"
)

// ── 提醒文案 ──

func buildPreClassMessage(o model.Occurrence, distance int, w model.Weather) string {
	lines := []string{
		"即将上课: " + o.Name,
		fmt.Sprintf("时间: %s-%s", o.StartTime, o.EndTime),
	}
	if o.Teacher != "" {
		lines = append(lines, "教师: "+o.Teacher)
	}
	if o.Classroom != "" {
		lines = append(lines, "教室: "+o.Classroom)
	}
	if o.Notes != "" {
		lines = append(lines, "备注: "+o.Notes)
	}
	if distance > farDistance {
		lines = append(lines, fmt.Sprintf("⚠️ 距离较远，约%d米，建议提前%d分钟出发", distance, distance/100))
	}

	// 默认天气同样展示，描述为占位文案
	temp := "N/A"
	if w.Temp != nil {
		temp = fmt.Sprint(*w.Temp)
	}
	lines = append(lines, fmt.Sprintf("当前天气: %s %s℃", w.Description, temp))
	if hint := weatherHint(w); hint != "" {
		lines = append(lines, hint)
	}
	return strings.Join(lines, "\n")
}

// weatherHint 按降水、高温、低温的顺序只给一条提示
func weatherHint(w model.Weather) string {
	desc := strings.ToLower(w.Description)
	switch {
	case strings.Contains(desc, "雨") || strings.Contains(desc, "rain"):
		return "☔ 记得带伞"
	case strings.Contains(desc, "雪") || strings.Contains(desc, "snow"):
		return "❄️ 注意保暖，路面可能湿滑"
	case w.Temp != nil && *w.Temp > 30:
		return "🔥 天气炎热，注意防暑"
	case w.Temp != nil && *w.Temp < 5:
		return "❄️ 天气寒冷，注意保暖"
	}
	return ""
}

// buildEndClassMessage 按每 100 米 1 分钟估算换教室所需时间
func buildEndClassMessage(o model.Occurrence, next *model.Occurrence, nextDistance int) string {
	lines := []string{"即将下课: " + o.Name}
	if next == nil {
		lines = append(lines, "今日无更多课程安排")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, fmt.Sprintf("下节课: %s (%s)", next.Name, next.StartTime))
	if next.Classroom != "" {
		lines = append(lines, "教室: "+next.Classroom)
		if next.Classroom != o.Classroom && nextDistance > roomChangeDistance {
			gap := next.StartMinutes() - o.EndMinutes()
			travel := nextDistance / 100
			msg := fmt.Sprintf("⚠️ 需要换教室! 距离约%d米，", nextDistance)
			if gap < travel+2 {
				msg += "时间紧张，请立即前往!"
			} else {
				msg += fmt.Sprintf("预计需要%d分钟", travel)
			}
			lines = append(lines, msg)
		}
	}
	if next.Notes != "" {
		lines = append(lines, "备注: "+next.Notes)
	}
	return strings.Join(lines, "\n")
}

func buildMidClassMessage(o model.Occurrence) string {
	return "课程提醒: " + o.Name + "\n已经上了一半的课程，建议适当休息一下眼睛"
}
