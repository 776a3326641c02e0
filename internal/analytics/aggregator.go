package analytics

import (
	"fmt"
	"sort"
	"strings"

	"FocusTrackerAI/pkg/models"
)

// 时段/小时桶的判定阈值：样本数不足 2 的桶不参与评定
const (
	minBucketSamples = 2

	highFocusPeriodRate       = 0.6
	highDistractionPeriodRate = 0.4
	highFocusHourRate         = 0.7
	highDistractionHourRate   = 0.3

	maxBucketLabels = 3
	maxTopReasons   = 5
)

// 3 个固定时段，顺序即并列时的稳定顺序
var periodNames = [3]string{"Morning (0-12)", "Afternoon (12-18)", "Evening (18-24)"}

// periodForHour 小时所属的时段
func periodForHour(hour int) string {
	switch {
	case hour < 12:
		return periodNames[0]
	case hour < 18:
		return periodNames[1]
	default:
		return periodNames[2]
	}
}

// Aggregate 将解析结果按时段和小时聚合为专注率统计
func Aggregate(period *models.ParsedPeriod) *models.TimeBucketStats {
	stats := &models.TimeBucketStats{
		Periods: make(map[string]models.BucketCount, len(periodNames)),
	}
	for _, name := range periodNames {
		stats.Periods[name] = models.BucketCount{}
	}

	if len(period.Records) == 0 {
		stats.HighFocusPeriods = []string{"No data"}
		stats.HighDistractionPeriods = []string{"No data"}
		stats.HighFocusHours = []string{"No data"}
		stats.HighDistractionHours = []string{"No data"}
		return stats
	}

	for _, record := range period.Records {
		hour := record.Timestamp.Hour()
		name := periodForHour(hour)
		bucket := stats.Periods[name]

		if record.Status == models.StatusFocused {
			stats.Hours[hour].Focus++
			bucket.Focus++
		} else {
			stats.Hours[hour].Distraction++
			bucket.Distraction++
		}
		stats.Periods[name] = bucket
	}

	stats.HighFocusPeriods, stats.HighDistractionPeriods = classifyPeriods(stats)
	stats.HighFocusHours, stats.HighDistractionHours = classifyHours(stats)
	return stats
}

// rateEntry 参与排序的桶
type rateEntry struct {
	label string
	count models.BucketCount
}

// classifyPeriods 找出高专注/高分心时段（专注率降序，截取前 3）
func classifyPeriods(stats *models.TimeBucketStats) (highFocus, highDistraction []string) {
	entries := make([]rateEntry, 0, len(periodNames))
	for _, name := range periodNames {
		if stats.Periods[name].Total() > 0 {
			entries = append(entries, rateEntry{label: name, count: stats.Periods[name]})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].count.FocusRate() > entries[j].count.FocusRate()
	})

	for _, e := range entries {
		rate := e.count.FocusRate()
		if rate >= highFocusPeriodRate && e.count.Total() >= minBucketSamples {
			highFocus = append(highFocus, fmt.Sprintf("%s (Focus rate %.0f%%)", e.label, rate*100))
		} else if rate <= highDistractionPeriodRate && e.count.Total() >= minBucketSamples {
			highDistraction = append(highDistraction, fmt.Sprintf("%s (Distraction rate %.0f%%)", e.label, (1-rate)*100))
		}
	}

	return truncateLabels(highFocus, "No obvious high focus period"),
		truncateLabels(highDistraction, "No obvious high distraction period")
}

// classifyHours 找出高专注/高分心小时（专注率降序，截取前 3）
func classifyHours(stats *models.TimeBucketStats) (highFocus, highDistraction []string) {
	entries := make([]rateEntry, 0, 24)
	for hour := 0; hour < 24; hour++ {
		if stats.Hours[hour].Total() > 0 {
			entries = append(entries, rateEntry{
				label: fmt.Sprintf("%d:00-%d:00", hour, hour+1),
				count: stats.Hours[hour],
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].count.FocusRate() > entries[j].count.FocusRate()
	})

	for _, e := range entries {
		rate := e.count.FocusRate()
		if rate >= highFocusHourRate && e.count.Total() >= minBucketSamples {
			highFocus = append(highFocus, fmt.Sprintf("%s (Focus rate %.0f%%)", e.label, rate*100))
		} else if rate <= highDistractionHourRate && e.count.Total() >= minBucketSamples {
			highDistraction = append(highDistraction, fmt.Sprintf("%s (Distraction rate %.0f%%)", e.label, (1-rate)*100))
		}
	}

	return truncateLabels(highFocus, "No obvious high focus hour"),
		truncateLabels(highDistraction, "No obvious high distraction hour")
}

// truncateLabels 截取前 3 个标签，空列表用占位文本代替
func truncateLabels(labels []string, empty string) []string {
	if len(labels) == 0 {
		return []string{empty}
	}
	if len(labels) > maxBucketLabels {
		labels = labels[:maxBucketLabels]
	}
	return labels
}

// RankReasons 分心原因排名：出现次数降序，次数相同按首次出现顺序
func RankReasons(period *models.ParsedPeriod) []models.ReasonCount {
	ranked := make([]models.ReasonCount, 0, len(period.ReasonOrder))
	for _, reason := range period.ReasonOrder {
		ranked = append(ranked, models.ReasonCount{Reason: reason, Count: period.DistractionReasons[reason]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// FormatReasons 渲染分心原因列表，用于提示词和报告统计头部
func FormatReasons(ranked []models.ReasonCount) string {
	if len(ranked) == 0 {
		return "No distraction records or reasons found"
	}

	var sb strings.Builder
	for _, rc := range ranked {
		sb.WriteString(fmt.Sprintf("- %s (Occurred %d times)\n", rc.Reason, rc.Count))
	}
	return sb.String()
}

// WeeklySource 周报汇总所使用的数据来源
type WeeklySource int

const (
	// SourceDailyReports 由已生成的日报汇总（只有按日计数，无小时粒度）
	SourceDailyReports WeeklySource = iota
	// SourceRawLogs 由原始日志汇总
	SourceRawLogs
)

// WeeklySummaryText 将按日期的解析结果汇总为周报提示词用的统计文本
// dates 给出日期的渲染顺序
func WeeklySummaryText(dates []string, perDay map[string]*models.ParsedPeriod, source WeeklySource) string {
	combined := &models.ParsedPeriod{DistractionReasons: make(map[string]int)}
	for _, date := range dates {
		day := perDay[date]
		if day == nil {
			continue
		}
		combined.FocusCount += day.FocusCount
		combined.DistractionCount += day.DistractionCount
		for _, reason := range day.ReasonOrder {
			if _, ok := combined.DistractionReasons[reason]; !ok {
				combined.ReasonOrder = append(combined.ReasonOrder, reason)
			}
			combined.DistractionReasons[reason] += day.DistractionReasons[reason]
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"In the recorded logs, there were %d monitoring events in total, including %d focused events and %d distracted events.",
		combined.Total(), combined.FocusCount, combined.DistractionCount))

	sb.WriteString("\n\nData summary by date:")
	for _, date := range dates {
		day := perDay[date]
		if day == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n- %s: %d events in total, %d focused, %d distracted",
			date, day.Total(), day.FocusCount, day.DistractionCount))
	}

	ranked := RankReasons(combined)
	if len(ranked) > 0 {
		if len(ranked) > maxTopReasons {
			ranked = ranked[:maxTopReasons]
		}
		sb.WriteString("\n\nMain distraction reasons include:")
		for _, rc := range ranked {
			sb.WriteString(fmt.Sprintf("\n- %s (Occurred %d times)", rc.Reason, rc.Count))
		}
	}

	// 标注数据来源，日报汇总路径没有小时/时段粒度
	switch source {
	case SourceDailyReports:
		sb.WriteString("\n\nData source: aggregated from generated daily reports (per-day counts only, no hourly granularity).")
	case SourceRawLogs:
		sb.WriteString("\n\nData source: aggregated from raw monitoring logs.")
	}

	return sb.String()
}
