package parser

import (
	"fmt"
	"strings"
	"testing"

	"FocusTrackerAI/internal/logstore"
	"FocusTrackerAI/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRawLog 按监控日志的实际格式拼接片段
func buildRawLog(entries ...string) string {
	var sb strings.Builder
	sb.WriteString("Focus Monitoring Log\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	for _, e := range entries {
		sb.WriteString(e + "\n")
		sb.WriteString(logstore.Separator + "\n\n")
	}
	return sb.String()
}

func focusedEntry(ts string) string {
	return fmt.Sprintf(`[%s] Output: {"status": "1. Focused"}`, ts)
}

func distractedEntry(ts, reason string) string {
	return fmt.Sprintf(`[%s] Output: {"status": "2. Distracted", "reason": "%s"}`, ts, reason)
}

func TestParseRawLog(t *testing.T) {
	raw := buildRawLog(
		focusedEntry("2024-01-10 09:00:00"),
		distractedEntry("2024-01-10 09:05:00", "social media"),
		focusedEntry("2024-01-10 14:30:00"),
	)

	period := Parse(raw, RawLogDialect, "")

	assert.Equal(t, 2, period.FocusCount)
	assert.Equal(t, 1, period.DistractionCount)
	assert.Equal(t, 3, period.Total())
	assert.InDelta(t, 1.0/3.0, period.DistractionRatio(), 1e-9)
	assert.Equal(t, map[string]int{"social media": 1}, period.DistractionReasons)

	require.Len(t, period.Records, 3)
	assert.Equal(t, models.StatusFocused, period.Records[0].Status)
	assert.Equal(t, models.StatusDistracted, period.Records[1].Status)
	assert.Equal(t, "social media", period.Records[1].Reason)
}

func TestParseRawLogSkipsMalformedSegments(t *testing.T) {
	raw := buildRawLog(
		focusedEntry("2024-01-10 09:00:00"),
		"not a log entry at all",
		`[2024-01-10 09:10:00] Output: {broken json`,
		`[2024-13-99 09:15:00] Output: {"status": "1. Focused"}`,
		distractedEntry("2024-01-10 09:20:00", "chat"),
	)

	period := Parse(raw, RawLogDialect, "")

	// 损坏片段全部跳过，计数只来自可解析的记录
	assert.Equal(t, 1, period.FocusCount)
	assert.Equal(t, 1, period.DistractionCount)
	assert.Len(t, period.Records, period.Total())
}

func TestParseRawLogDateFilter(t *testing.T) {
	raw := buildRawLog(
		focusedEntry("2024-01-09 23:55:00"),
		focusedEntry("2024-01-10 09:00:00"),
		distractedEntry("2024-01-10 10:00:00", "news"),
		distractedEntry("2024-01-11 08:00:00", "news"),
	)

	period := Parse(raw, RawLogDialect, "2024-01-10")

	assert.Equal(t, 1, period.FocusCount)
	assert.Equal(t, 1, period.DistractionCount)
	assert.Equal(t, map[string]int{"news": 1}, period.DistractionReasons)
	for _, rec := range period.Records {
		assert.Equal(t, "2024-01-10", rec.Timestamp.Format("2006-01-02"))
	}
}

func TestParseRawLogRecordsSortedByTime(t *testing.T) {
	raw := buildRawLog(
		focusedEntry("2024-01-10 15:00:00"),
		focusedEntry("2024-01-10 09:00:00"),
		distractedEntry("2024-01-10 12:00:00", "videos"),
	)

	period := Parse(raw, RawLogDialect, "")

	require.Len(t, period.Records, 3)
	for i := 1; i < len(period.Records); i++ {
		assert.False(t, period.Records[i].Timestamp.Before(period.Records[i-1].Timestamp))
	}
}

func TestParseRawLogReasonFirstSeenOrder(t *testing.T) {
	raw := buildRawLog(
		distractedEntry("2024-01-10 09:00:00", "social media"),
		distractedEntry("2024-01-10 09:05:00", "videos"),
		distractedEntry("2024-01-10 09:10:00", "social media"),
	)

	period := Parse(raw, RawLogDialect, "")

	assert.Equal(t, []string{"social media", "videos"}, period.ReasonOrder)
	assert.Equal(t, 2, period.DistractionReasons["social media"])
	assert.Equal(t, 1, period.DistractionReasons["videos"])
}

func TestParseRawLogEmptyReasonNotCounted(t *testing.T) {
	raw := buildRawLog(
		`[2024-01-10 09:00:00] Output: {"status": "2. Distracted"}`,
		distractedEntry("2024-01-10 09:05:00", "chat"),
	)

	period := Parse(raw, RawLogDialect, "")

	assert.Equal(t, 2, period.DistractionCount)
	assert.Equal(t, map[string]int{"chat": 1}, period.DistractionReasons)
	assert.Equal(t, []string{"chat"}, period.ReasonOrder)
}

func TestParseReportDialect(t *testing.T) {
	reportText := `# Daily Focus Report

Date: 2024-01-10

## Basic Statistics

- Number of focus records: 12
- Number of distraction records: 4
- Distraction ratio: 25.0%

## Distraction Reason Analysis

- social media (Occurred 3 times)
- short videos (Occurred 1 times)

## Time Pattern Analysis

Some narrative the model produced.
`

	period := Parse(reportText, ReportDialect, "2024-01-10")

	assert.Equal(t, 12, period.FocusCount)
	assert.Equal(t, 4, period.DistractionCount)
	assert.Equal(t, map[string]int{"social media": 3, "short videos": 1}, period.DistractionReasons)
	assert.Equal(t, []string{"social media", "short videos"}, period.ReasonOrder)
	assert.Empty(t, period.Records)
}

func TestParseReportDialectWithoutReasonSection(t *testing.T) {
	reportText := `# Daily Focus Report

- Number of focus records: 5
- Number of distraction records: 0
`

	period := Parse(reportText, ReportDialect, "")

	assert.Equal(t, 5, period.FocusCount)
	assert.Equal(t, 0, period.DistractionCount)
	assert.Empty(t, period.DistractionReasons)
}

func TestParseEmptyInput(t *testing.T) {
	period := Parse("", RawLogDialect, "")

	assert.Equal(t, 0, period.Total())
	assert.Equal(t, 0.0, period.DistractionRatio())
}
