package parser

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"FocusTrackerAI/internal/logstore"
	"FocusTrackerAI/pkg/models"
)

// Dialect 日志文本的两种可解析格式
type Dialect int

const (
	// RawLogDialect 原始监控日志：分隔线切分的 [时间戳] Output: {json} 片段
	RawLogDialect Dialect = iota
	// ReportDialect 已生成的日报文本：统计头部 + 分心原因列表，只有聚合计数
	ReportDialect
)

var (
	entryPattern = regexp.MustCompile(`(?s)\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\] Output: (\{.*?\})`)

	focusCountPattern       = regexp.MustCompile(`Number of focus records:\s*(\d+)`)
	distractionCountPattern = regexp.MustCompile(`Number of distraction records:\s*(\d+)`)
	reasonsSectionPattern   = regexp.MustCompile(`(?s)## Distraction Reason Analysis\s*\n(.*?)(?:\n##|\z)`)
	reasonBulletPattern     = regexp.MustCompile(`- (.+?) \(Occurred (\d+) times\)`)
)

// entryPayload 单条记录的模型 JSON 输出
type entryPayload struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Parse 从原始文本中提取结构化观察数据
// filterDate 非空时只保留该日期 (YYYY-MM-DD) 的记录；
// 无法识别的片段一律跳过，永远不返回错误
func Parse(rawText string, dialect Dialect, filterDate string) *models.ParsedPeriod {
	period := &models.ParsedPeriod{
		Date:               filterDate,
		DistractionReasons: make(map[string]int),
	}

	switch dialect {
	case ReportDialect:
		parseReport(rawText, period)
	default:
		parseRawLog(rawText, filterDate, period)
	}

	return period
}

// parseRawLog 解析原始监控日志
func parseRawLog(rawText, filterDate string, period *models.ParsedPeriod) {
	for _, segment := range strings.Split(rawText, logstore.Separator) {
		if strings.TrimSpace(segment) == "" {
			continue
		}

		matches := entryPattern.FindStringSubmatch(segment)
		if matches == nil {
			// 损坏或不完整的片段，静默跳过
			continue
		}

		ts, err := time.ParseInLocation(logstore.TimestampLayout, matches[1], time.Local)
		if err != nil {
			continue
		}

		// 日期过滤在聚合之前完成，保证桶计数不被其他日期污染
		if filterDate != "" && ts.Format("2006-01-02") != filterDate {
			continue
		}

		var payload entryPayload
		if err := json.Unmarshal([]byte(matches[2]), &payload); err != nil {
			continue
		}

		record := models.LogRecord{Timestamp: ts}
		if strings.HasPrefix(payload.Status, "1.") {
			record.Status = models.StatusFocused
			period.FocusCount++
		} else {
			record.Status = models.StatusDistracted
			record.Reason = payload.Reason
			period.DistractionCount++
			if payload.Reason != "" {
				if _, ok := period.DistractionReasons[payload.Reason]; !ok {
					period.ReasonOrder = append(period.ReasonOrder, payload.Reason)
				}
				period.DistractionReasons[payload.Reason]++
			}
		}
		period.Records = append(period.Records, record)
	}

	// 按时间排序，保持同刻记录的插入顺序
	sort.SliceStable(period.Records, func(i, j int) bool {
		return period.Records[i].Timestamp.Before(period.Records[j].Timestamp)
	})
}

// parseReport 解析已生成的日报文本
// 只还原聚合计数和分心原因标签，不含单条时间戳，
// 因此由日报汇总出的周报没有小时/时段粒度
func parseReport(rawText string, period *models.ParsedPeriod) {
	if m := focusCountPattern.FindStringSubmatch(rawText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			period.FocusCount += n
		}
	}
	if m := distractionCountPattern.FindStringSubmatch(rawText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			period.DistractionCount += n
		}
	}

	section := reasonsSectionPattern.FindStringSubmatch(rawText)
	if section == nil {
		return
	}

	for _, bullet := range reasonBulletPattern.FindAllStringSubmatch(section[1], -1) {
		reason := strings.TrimSpace(bullet[1])
		count, err := strconv.Atoi(bullet[2])
		if err != nil || reason == "" {
			continue
		}
		if _, ok := period.DistractionReasons[reason]; !ok {
			period.ReasonOrder = append(period.ReasonOrder, reason)
		}
		period.DistractionReasons[reason] += count
	}
}
