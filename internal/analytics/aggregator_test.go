package analytics

import (
	"strings"
	"testing"
	"time"

	"FocusTrackerAI/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record 构造指定小时的观察记录
func record(hour int, status models.FocusStatus, reason string) models.LogRecord {
	return models.LogRecord{
		Timestamp: time.Date(2024, 1, 10, hour, 5, 0, 0, time.Local),
		Status:    status,
		Reason:    reason,
	}
}

// periodOf 由记录列表构造解析结果
func periodOf(records ...models.LogRecord) *models.ParsedPeriod {
	p := &models.ParsedPeriod{DistractionReasons: make(map[string]int)}
	for _, rec := range records {
		if rec.Status == models.StatusFocused {
			p.FocusCount++
		} else {
			p.DistractionCount++
			if rec.Reason != "" {
				if _, ok := p.DistractionReasons[rec.Reason]; !ok {
					p.ReasonOrder = append(p.ReasonOrder, rec.Reason)
				}
				p.DistractionReasons[rec.Reason]++
			}
		}
		p.Records = append(p.Records, rec)
	}
	return p
}

func TestAggregateEndToEnd(t *testing.T) {
	// 09:00 专注 + 09:05 分心，专注率 0.5 的小时桶不应进入任何判定列表
	p := periodOf(
		record(9, models.StatusFocused, ""),
		record(9, models.StatusDistracted, "social media"),
	)

	assert.Equal(t, 1, p.FocusCount)
	assert.Equal(t, 1, p.DistractionCount)
	assert.InDelta(t, 0.5, p.DistractionRatio(), 1e-9)
	assert.Equal(t, map[string]int{"social media": 1}, p.DistractionReasons)

	stats := Aggregate(p)

	assert.Equal(t, 1, stats.Hours[9].Focus)
	assert.Equal(t, 1, stats.Hours[9].Distraction)
	assert.InDelta(t, 0.5, stats.Hours[9].FocusRate(), 1e-9)

	// 0.5 既不满足 >=0.7 也不满足 <=0.3
	assert.Equal(t, []string{"No obvious high focus hour"}, stats.HighFocusHours)
	assert.Equal(t, []string{"No obvious high distraction hour"}, stats.HighDistractionHours)
}

func TestAggregateEmptyPeriod(t *testing.T) {
	stats := Aggregate(periodOf())

	assert.Equal(t, []string{"No data"}, stats.HighFocusPeriods)
	assert.Equal(t, []string{"No data"}, stats.HighDistractionPeriods)
	assert.Equal(t, []string{"No data"}, stats.HighFocusHours)
	assert.Equal(t, []string{"No data"}, stats.HighDistractionHours)
}

func TestAggregatePeriodClassification(t *testing.T) {
	// 上午 5 专注 1 分心 (83%) -> 高专注；下午 1 专注 4 分心 (20%) -> 高分心
	records := []models.LogRecord{
		record(9, models.StatusFocused, ""),
		record(9, models.StatusFocused, ""),
		record(10, models.StatusFocused, ""),
		record(10, models.StatusFocused, ""),
		record(11, models.StatusFocused, ""),
		record(11, models.StatusDistracted, "chat"),
		record(14, models.StatusFocused, ""),
		record(14, models.StatusDistracted, "videos"),
		record(15, models.StatusDistracted, "videos"),
		record(15, models.StatusDistracted, "videos"),
		record(16, models.StatusDistracted, "videos"),
	}

	stats := Aggregate(periodOf(records...))

	require.Len(t, stats.HighFocusPeriods, 1)
	assert.Equal(t, "Morning (0-12) (Focus rate 83%)", stats.HighFocusPeriods[0])

	require.Len(t, stats.HighDistractionPeriods, 1)
	assert.Equal(t, "Afternoon (12-18) (Distraction rate 80%)", stats.HighDistractionPeriods[0])
}

func TestAggregateSingleSampleBucketIgnored(t *testing.T) {
	// 单条记录的桶即使专注率 100% 也不参与评定
	stats := Aggregate(periodOf(record(9, models.StatusFocused, "")))

	assert.Equal(t, []string{"No obvious high focus hour"}, stats.HighFocusHours)
	assert.Equal(t, []string{"No obvious high focus period"}, stats.HighFocusPeriods)
}

func TestAggregateHourLabelsTruncatedToThree(t *testing.T) {
	var records []models.LogRecord
	for _, hour := range []int{8, 9, 10, 11, 14} {
		records = append(records,
			record(hour, models.StatusFocused, ""),
			record(hour, models.StatusFocused, ""),
		)
	}

	stats := Aggregate(periodOf(records...))

	assert.Len(t, stats.HighFocusHours, 3)
	for _, label := range stats.HighFocusHours {
		assert.Contains(t, label, "Focus rate 100%")
	}
}

func TestRankReasonsStableOrder(t *testing.T) {
	// 首次出现顺序 A,C,B，计数 A:3 B:3 C:1 -> 排名 [A,B,C]
	p := &models.ParsedPeriod{
		DistractionReasons: map[string]int{"A": 3, "B": 3, "C": 1},
		ReasonOrder:        []string{"A", "C", "B"},
	}

	ranked := RankReasons(p)

	require.Len(t, ranked, 3)
	assert.Equal(t, "A", ranked[0].Reason)
	assert.Equal(t, "B", ranked[1].Reason)
	assert.Equal(t, "C", ranked[2].Reason)
	assert.Equal(t, 3, ranked[0].Count)
	assert.Equal(t, 1, ranked[2].Count)
}

func TestFormatReasons(t *testing.T) {
	text := FormatReasons([]models.ReasonCount{
		{Reason: "social media", Count: 3},
		{Reason: "videos", Count: 1},
	})

	assert.Equal(t, "- social media (Occurred 3 times)\n- videos (Occurred 1 times)\n", text)
}

func TestFormatReasonsEmpty(t *testing.T) {
	assert.Equal(t, "No distraction records or reasons found", FormatReasons(nil))
}

func TestWeeklySummaryText(t *testing.T) {
	perDay := map[string]*models.ParsedPeriod{
		"2024-01-08": {
			FocusCount:         4,
			DistractionCount:   2,
			DistractionReasons: map[string]int{"social media": 2},
			ReasonOrder:        []string{"social media"},
		},
		"2024-01-09": {
			FocusCount:         6,
			DistractionCount:   1,
			DistractionReasons: map[string]int{"videos": 1},
			ReasonOrder:        []string{"videos"},
		},
	}
	dates := []string{"2024-01-08", "2024-01-09"}

	text := WeeklySummaryText(dates, perDay, SourceDailyReports)

	assert.Contains(t, text, "13 monitoring events in total, including 10 focused events and 3 distracted events")
	assert.Contains(t, text, "- 2024-01-08: 6 events in total, 4 focused, 2 distracted")
	assert.Contains(t, text, "- 2024-01-09: 7 events in total, 6 focused, 1 distracted")
	assert.Contains(t, text, "- social media (Occurred 2 times)")
	assert.Contains(t, text, "aggregated from generated daily reports")

	// 日期渲染顺序与传入一致
	assert.Less(t, strings.Index(text, "2024-01-08"), strings.Index(text, "2024-01-09"))
}

func TestWeeklySummaryTextRawLogSource(t *testing.T) {
	perDay := map[string]*models.ParsedPeriod{
		"2024-01-08": {FocusCount: 1, DistractionReasons: map[string]int{}},
	}

	text := WeeklySummaryText([]string{"2024-01-08"}, perDay, SourceRawLogs)

	assert.NotContains(t, text, "aggregated from generated daily reports")
	assert.Contains(t, text, "aggregated from raw monitoring logs")
}
