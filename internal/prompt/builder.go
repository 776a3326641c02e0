package prompt

import (
	"fmt"
	"strings"
	"time"

	"FocusTrackerAI/internal/analytics"
	"FocusTrackerAI/pkg/models"
)

// DailyStatsHeader 日报统计头部
// 这一块由流水线自己原样写入报告文件开头，而不是依赖模型复述，
// 周报汇总时的日报解析读取的正是这里写出的字节
func DailyStatsHeader(date string, period *models.ParsedPeriod, ranked []models.ReasonCount) string {
	var sb strings.Builder
	sb.WriteString("# Daily Focus Report\n")
	sb.WriteString(fmt.Sprintf("Date: %s\n\n", date))
	sb.WriteString("## Basic Statistics\n")
	sb.WriteString(fmt.Sprintf("- Number of focus records: %d\n", period.FocusCount))
	sb.WriteString(fmt.Sprintf("- Number of distraction records: %d\n", period.DistractionCount))
	sb.WriteString(fmt.Sprintf("- Distraction ratio: %.1f%%\n\n", period.DistractionRatio()*100))
	sb.WriteString("## Distraction Reason Analysis\n")

	reasons := analytics.FormatReasons(ranked)
	sb.WriteString(reasons)
	if !strings.HasSuffix(reasons, "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildDailyPrompt 构建日报生成提示词
// 纯字符串拼接，输入固定则输出固定
func BuildDailyPrompt(date string, period *models.ParsedPeriod, stats *models.TimeBucketStats, rawLogText string) string {
	ranked := analytics.RankReasons(period)

	return fmt.Sprintf(`[Role]: You are a professional focus analysis assistant, good at extracting insights from log data and generating practical improvement suggestions.

[Data]: The following is the analysis result of the user's focus monitoring log for %s:

1. Basic statistics:
   - Total records: %d
   - Focused records: %d
   - Distracted records: %d
   - Distraction ratio: %.1f%%

2. Time analysis:
   - High focus periods: %s
   - High distraction periods: %s
   - High focus hours: %s
   - High distraction hours: %s

3. Distraction reason analysis:
%s

4. Raw log records:
%s

[Analysis task]:
Please, based on the above data analysis, generate the narrative sections of a structured daily focus report, which should include:

1. Time patterns: Analyze changes in focus level throughout the day, identifying best and worst time periods.
2. Distraction reasons: Analyze the patterns and frequencies of distraction reasons, identifying the most critical interfering factors.
3. Focus performance: Evaluate the user's overall focus performance for the day, and whether a good focus state was achieved.
4. Specific suggestions: Provide 3-5 concrete and feasible improvement suggestions based on the identified distraction patterns and reasons.

[Output format]:
Please use the following text format to return the analysis result:

## Time Pattern Analysis
- High focus periods: [Fill based on data analysis]
- High distraction periods: [Fill based on data analysis]

## Performance Evaluation
[Overall evaluation of focus performance for the day]

## Improvement Suggestions
- [Area 1]: [Concrete suggestion] -> Expected effect: [Expected effect]
- [Area 2]: [Concrete suggestion] -> Expected effect: [Expected effect]
- [Area 3]: [Concrete suggestion] -> Expected effect: [Expected effect]

[Notes]:
- Strictly base your analysis on the provided data, do not add content that does not exist
- Suggestions must be specific and actionable, avoid generalities
- The analysis should be in-depth, finding patterns rather than just repeating data
- Do not repeat the statistics header below; your output is appended right after it in the stored report:

%s`,
		date,
		period.Total(),
		period.FocusCount,
		period.DistractionCount,
		period.DistractionRatio()*100,
		strings.Join(stats.HighFocusPeriods, ", "),
		strings.Join(stats.HighDistractionPeriods, ", "),
		strings.Join(stats.HighFocusHours, ", "),
		strings.Join(stats.HighDistractionHours, ", "),
		analytics.FormatReasons(ranked),
		rawLogText,
		DailyStatsHeader(date, period, ranked),
	)
}

// BuildWeeklyPrompt 构建周报生成提示词
func BuildWeeklyPrompt(summaryText string) string {
	return fmt.Sprintf(`[Role]: You are a health assistant. Your task is to comprehensively analyze the user's weekly focus log and generate a weekly summary report. The log records daily focus and distraction status (including timestamps, status, and distraction reasons, etc).

[Context]:
Below is a summary of data automatically counted from your logs over the past period:
[Historical Log Data]:
%s

[Task]:
Based on the above [Historical Log Data], please analyze the user's long-term work status in depth and answer the following:
1. Count daily focus and distraction events this week;
2. Analyze the time periods and frequency of distraction events;
3. Summarize common distraction reasons and identify main interference factors;
4. Evaluate the effectiveness of interventions (such as popup reminders) this week;
5. Propose improvement suggestions and optimization strategies to help the user stay focused in the future.

[Output Format]:

# Weekly Focus Summary Report

## Daily Data Statistics
- YYYY-MM-DD: focused [number] times, distracted [number] times
- YYYY-MM-DD: focused [number] times, distracted [number] times
(include statistics for all dates in the week)

## Distraction Pattern Analysis
[Analysis of the time periods and frequency of distraction events]

## Common Distraction Reasons
1. [Most common distraction reason 1]
2. [Most common distraction reason 2]
3. [Most common distraction reason 3]

## Intervention Effectiveness Evaluation
[Evaluation of intervention effectiveness based on data]

## Improvement Suggestions
1. [Specific suggestion 1: detailed explanation]
2. [Specific suggestion 2: detailed explanation]
3. [Specific suggestion 3: detailed explanation]

Notes:
- Date format must use ISO standard (YYYY-MM-DD)
- The values for focused and distracted should be integers
- common_reasons should extract the 3-5 main distraction reasons from historical data
- improvement_suggestions should give 3-5 concrete and actionable improvement suggestions
`, summaryText)
}

// WeeklyHeader 周报文件头部（生成时间戳），由流水线写入
func WeeklyHeader(startDate, endDate string, generatedAt time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Weekly Focus Report (%s to %s)\n\n", startDate, endDate))
	sb.WriteString(fmt.Sprintf("*Generated at: %s*\n\n", generatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString("---\n\n")
	return sb.String()
}
