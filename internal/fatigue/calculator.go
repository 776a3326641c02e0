package fatigue

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"FocusTrackerAI/internal/config"
	"FocusTrackerAI/internal/inference"
	"FocusTrackerAI/internal/logstore"
	"FocusTrackerAI/internal/parser"
	"FocusTrackerAI/pkg/logger"
	"FocusTrackerAI/pkg/models"
)

// 疲劳等级阈值（分心率百分比）
const (
	levelGoodMax     = 20.0
	levelMildMax     = 40.0
	levelModerateMax = 60.0
)

const topReasonCount = 2

// parenthetical 原因文本中的括号补充信息（应用名等），统计前去掉
var parenthetical = regexp.MustCompile(`\(.*?\)`)

// Calculator 疲劳度计算器
// 疲劳分数即当日分心率乘 100，分数越高越需要休息
type Calculator struct {
	store *logstore.Store
	ai    *inference.Client
	cfg   *config.Manager
}

// NewCalculator 创建疲劳度计算器
func NewCalculator(store *logstore.Store, ai *inference.Client, cfg *config.Manager) *Calculator {
	return &Calculator{store: store, ai: ai, cfg: cfg}
}

// levelFor 按分数划分疲劳等级
func levelFor(score float64) (level, advice, color string, intervene bool) {
	switch {
	case score < levelGoodMax:
		return "Good Focus State",
			"State is excellent, you can complete tasks efficiently. Keep up the good focus!",
			"Blue", false
	case score < levelMildMax:
		return "Mild Fatigue",
			"Attention has slightly declined. It is recommended to take a short break, hydrate, or do light stretching.",
			"Sky Blue ~ Orange", true
	case score < levelModerateMax:
		return "Moderate Fatigue",
			"Distraction frequency is high. Please take a 5-15 minute break to avoid continuous fatigue.",
			"Orange", true
	default:
		return "High Fatigue",
			"Cognitive resources have significantly decreased. It is recommended to stop working and rest away from the screen.",
			"Red", true
	}
}

// topReasons 按出现次数取最主要的分心原因
// 括号内容先去掉再合并计数，次数相同时按首次出现顺序
func topReasons(records []models.LogRecord, topn int) []string {
	counts := make(map[string]int)
	var order []string
	for _, rec := range records {
		if rec.Status != models.StatusDistracted {
			continue
		}
		reason := strings.TrimSpace(parenthetical.ReplaceAllString(rec.Reason, ""))
		if reason == "" {
			continue
		}
		if _, ok := counts[reason]; !ok {
			order = append(order, reason)
		}
		counts[reason]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topn {
		order = order[:topn]
	}
	return order
}

// scoreFor 由解析结果计算完整的疲劳评估
func scoreFor(period *models.ParsedPeriod) models.FatigueScore {
	score := period.DistractionRatio() * 100
	level, advice, color, intervene := levelFor(score)
	return models.FatigueScore{
		Score:              score,
		Level:              level,
		Advice:             advice,
		Color:              color,
		Intervene:          intervene,
		DistractionCount:   period.DistractionCount,
		TotalCount:         period.Total(),
		DistractionReasons: topReasons(period.Records, topReasonCount),
	}
}

// Current 计算指定日期（通常是今天）的疲劳度
// 当日没有记录时分数为 0，等级为良好
func (c *Calculator) Current(date string) (models.FatigueScore, error) {
	filtered, err := c.store.FilterByDate(date)
	if err != nil {
		return models.FatigueScore{}, fmt.Errorf("failed to read logs: %w", err)
	}
	period := parser.Parse(filtered, parser.RawLogDialect, date)
	return scoreFor(period), nil
}

// Report 一次疲劳度干预报告
type Report struct {
	Date   string  `json:"date"`
	Score  float64 `json:"score"`
	Report string  `json:"report"`
}

// InterventionReport 生成当日的疲劳干预报告
// 只有达到干预阈值才调用模型，状态良好时返回固定文案
func (c *Calculator) InterventionReport(ctx context.Context, date string) (Report, error) {
	score, err := c.Current(date)
	if err != nil {
		return Report{}, err
	}

	if !score.Intervene {
		return Report{
			Date:   date,
			Score:  score.Score,
			Report: "Current state is good, no intervention needed.",
		}, nil
	}

	reasonsStr := "No main distraction reasons available"
	if len(score.DistractionReasons) > 0 {
		reasonsStr = strings.Join(score.DistractionReasons, "; ")
	}

	systemPrompt := "You are an intelligent health assistant, proficient in active-passive control theory analysis. Please generate a structured and personalized fatigue relief strategy report based on fatigue detection data.\n" +
		"The report should include:\n" +
		"1. Brief description of fatigue state (distraction rate and level).\n" +
		"2. Brief list of main distraction triggers.\n" +
		"3. Specific proactive intervention suggestions (such as short breaks, playing soothing music, task switching, work style adjustment, etc. Each suggestion should be concise, specific, and actionable).\n" +
		"4. A one-sentence popular science explanation of active-passive control theory.\n" +
		"The writing should be organized, friendly, yet authoritative.\n"

	userPrompt := fmt.Sprintf(
		"Current fatigue level: %s\nDistraction rate score: %.2f\nMain distraction triggers: %s\n",
		score.Level, score.Score, reasonsStr)

	aiCfg := c.cfg.GetAI()
	logger.Info("🩺 疲劳度达到干预阈值，生成干预报告 (分数 %.1f)", score.Score)
	content, err := c.ai.Chat(ctx, []inference.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}, aiCfg.Model, aiCfg.Temperature)
	if err != nil {
		return Report{}, fmt.Errorf("failed to generate intervention report: %w", err)
	}

	return Report{
		Date:   date,
		Score:  score.Score,
		Report: strings.TrimSpace(content),
	}, nil
}

// Historical 最近 days 天的逐日疲劳度，从今天往前
// 没有记录的日期分数为 0，等级标为无数据
func (c *Calculator) Historical(days int, now time.Time) ([]models.FatigueSnapshot, error) {
	raw, err := c.store.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}

	all := parser.Parse(raw, parser.RawLogDialect, "")
	byDate := make(map[string][]models.LogRecord)
	for _, rec := range all.Records {
		d := rec.Timestamp.Format("2006-01-02")
		byDate[d] = append(byDate[d], rec)
	}

	var results []models.FatigueSnapshot
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		recs, ok := byDate[date]
		if !ok {
			results = append(results, models.FatigueSnapshot{
				Date:  date,
				Level: "No data",
				Color: "Gray",
			})
			continue
		}

		day := &models.ParsedPeriod{Date: date}
		for _, rec := range recs {
			if rec.Status == models.StatusFocused {
				day.FocusCount++
			} else {
				day.DistractionCount++
			}
		}
		fs := scoreFor(day)
		results = append(results, models.FatigueSnapshot{
			Date:             date,
			Score:            fs.Score,
			Level:            fs.Level,
			Color:            fs.Color,
			DistractionCount: fs.DistractionCount,
			TotalCount:       fs.TotalCount,
		})
	}
	return results, nil
}

// Snapshot 对指定日期生成一条可持久化的快照
func (c *Calculator) Snapshot(date string) (models.FatigueSnapshot, error) {
	fs, err := c.Current(date)
	if err != nil {
		return models.FatigueSnapshot{}, err
	}
	return models.FatigueSnapshot{
		Date:             date,
		Score:            fs.Score,
		Level:            fs.Level,
		Color:            fs.Color,
		DistractionCount: fs.DistractionCount,
		TotalCount:       fs.TotalCount,
		CreatedAt:        time.Now(),
	}, nil
}
