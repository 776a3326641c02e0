package report

import (
	"time"

	"FocusTrackerAI/pkg/models"
)

// WeekFor 计算相对当前时间的周范围
// weeksAgo 为 0 表示本周，1 表示上周，以此类推；
// 一周从周一开始，End 为同周周日（含）
func WeekFor(now time.Time, weeksAgo int) models.WeekRange {
	// time.Weekday 以周日为 0，这里换算成距周一的天数
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -daysSinceMonday-7*weeksAgo)
	return models.WeekRange{
		Start: monday,
		End:   monday.AddDate(0, 0, 6),
	}
}

// DatesInRange 范围内的全部日期，按时间顺序
func DatesInRange(wr models.WeekRange) []string {
	var dates []string
	for d := wr.Start; !d.After(wr.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates
}
