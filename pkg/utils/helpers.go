package utils

import (
	"fmt"
	"time"
)

// TimeInRange 检查当前时间是否在指定范围内
func TimeInRange(startTime, endTime string) (bool, error) {
	now := time.Now()

	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return false, fmt.Errorf("invalid start time format: %w", err)
	}

	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return false, fmt.Errorf("invalid end time format: %w", err)
	}

	// 将时间应用到今天
	startToday := time.Date(now.Year(), now.Month(), now.Day(),
		start.Hour(), start.Minute(), 0, 0, now.Location())
	endToday := time.Date(now.Year(), now.Month(), now.Day(),
		end.Hour(), end.Minute(), 0, 0, now.Location())

	// 处理跨天的情况
	if endToday.Before(startToday) {
		endToday = endToday.Add(24 * time.Hour)
	}

	return now.After(startToday) && now.Before(endToday), nil
}

// IsDayInList 检查星期几是否在列表中
func IsDayInList(day time.Weekday, days []int) bool {
	dayInt := int(day)
	for _, d := range days {
		if d == dayInt {
			return true
		}
	}
	return false
}

// ValidDate 校验 YYYY-MM-DD 格式的日期字符串
func ValidDate(dateStr string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", dateStr, err)
	}
	return t, nil
}

// TruncateString 截断字符串
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
