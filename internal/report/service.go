package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FocusTrackerAI/internal/analytics"
	"FocusTrackerAI/internal/config"
	"FocusTrackerAI/internal/inference"
	"FocusTrackerAI/internal/logstore"
	"FocusTrackerAI/internal/parser"
	"FocusTrackerAI/internal/prompt"
	"FocusTrackerAI/pkg/logger"
	"FocusTrackerAI/pkg/models"
	"FocusTrackerAI/pkg/utils"
)

var (
	// ErrAlreadyRunning 同作用域已有任务在运行
	ErrAlreadyRunning = errors.New("analysis already running")
	// ErrNotRunning 当前没有可停止的任务
	ErrNotRunning = errors.New("no analysis running")
	// ErrNoData 指定范围内没有任何记录
	ErrNoData = errors.New("no records found")
)

// Service 报告生成服务
// 日报和周报各持有一个任务槽，生成在后台 goroutine 中流式进行
type Service struct {
	store *logstore.Store
	repo  *Repository
	ai    *inference.Client
	cfg   *config.Manager

	dailyJob  job
	weeklyJob job
}

// NewService 创建报告生成服务
func NewService(store *logstore.Store, repo *Repository, ai *inference.Client, cfg *config.Manager) *Service {
	return &Service{
		store: store,
		repo:  repo,
		ai:    ai,
		cfg:   cfg,
	}
}

// StartDaily 启动指定日期的日报生成
// 报告文件已存在时直接标记完成，不重复调用模型
func (s *Service) StartDaily(date string) error {
	if _, err := utils.ValidDate(date); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}

	ctx, ok := s.dailyJob.tryStart()
	if !ok {
		return ErrAlreadyRunning
	}

	// 占住任务槽之后再做存在性检查，避免影响其他日期正在跑的任务
	if s.repo.DailyExists(date) {
		logger.Info("📄 日报已存在，跳过生成: %s", date)
		s.dailyJob.finish(models.JobCompleted, "报告已存在", s.repo.DailyPath(date))
		return nil
	}

	logger.Info("🚀 开始生成日报: %s", date)
	go s.runDaily(ctx, date)
	return nil
}

// StopDaily 停止正在运行的日报生成
func (s *Service) StopDaily() error {
	if !s.dailyJob.requestStop() {
		return ErrNotRunning
	}
	logger.Info("🛑 已请求停止日报生成")
	return nil
}

// DailyStatus 日报任务状态
func (s *Service) DailyStatus() models.JobStatus {
	return s.dailyJob.status()
}

// runDaily 日报生成主流程
func (s *Service) runDaily(ctx context.Context, date string) {
	filtered, err := s.store.FilterByDate(date)
	if err != nil {
		logger.Error("读取日志失败: %v", err)
		s.dailyJob.finish(models.JobFailed, fmt.Sprintf("读取日志失败: %v", err), "")
		return
	}
	if strings.TrimSpace(filtered) == "" {
		logger.Warn("日期 %s 没有专注记录", date)
		s.dailyJob.finish(models.JobFailed, "该日期没有专注记录", "")
		return
	}

	period := parser.Parse(filtered, parser.RawLogDialect, date)
	stats := analytics.Aggregate(period)
	ranked := analytics.RankReasons(period)

	promptText := prompt.BuildDailyPrompt(date, period, stats, filtered)

	aiCfg := s.cfg.GetAI()
	var body strings.Builder
	err = s.ai.Generate(ctx, promptText, inference.GenerateOptions{
		Model:       aiCfg.Model,
		Temperature: aiCfg.Temperature,
		NumPredict:  aiCfg.DailyNumPredict,
	}, func(text string) {
		body.WriteString(text)
	})

	if err != nil {
		// 取消时丢弃已累积的内容，不留下半成品文件
		if errors.Is(err, context.Canceled) {
			logger.Info("🛑 日报生成已停止: %s", date)
			s.dailyJob.finish(models.JobStopped, "已手动停止", "")
			return
		}
		logger.Error("日报生成失败: %v", err)
		s.dailyJob.finish(models.JobFailed, fmt.Sprintf("生成失败: %v", err), "")
		return
	}

	// 统计头由本地计算结果写入，模型只产出叙述性章节
	content := prompt.DailyStatsHeader(date, period, ranked) + "\n" + body.String()
	path, err := s.repo.WriteDaily(date, content)
	if err != nil {
		logger.Error("写入日报失败: %v", err)
		s.dailyJob.finish(models.JobFailed, fmt.Sprintf("写入报告失败: %v", err), "")
		return
	}

	logger.Info("✅ 日报生成完成: %s", path)
	s.dailyJob.finish(models.JobCompleted, "", path)
}

// StartWeekly 启动指定周的周报生成
// weeksAgo 为 0 表示本周，1 表示上周
func (s *Service) StartWeekly(weeksAgo int) error {
	if weeksAgo < 0 {
		return fmt.Errorf("invalid weeks_ago: %d", weeksAgo)
	}

	wr := WeekFor(time.Now(), weeksAgo)

	ctx, ok := s.weeklyJob.tryStart()
	if !ok {
		return ErrAlreadyRunning
	}

	// 占住任务槽之后再做存在性检查，避免影响其他周正在跑的任务
	if s.repo.WeeklyExists(wr.StartDate(), wr.EndDate()) {
		logger.Info("📄 周报已存在，跳过生成: %s ~ %s", wr.StartDate(), wr.EndDate())
		s.weeklyJob.finish(models.JobCompleted, "报告已存在", s.repo.WeeklyPath(wr.StartDate(), wr.EndDate()))
		return nil
	}

	logger.Info("🚀 开始生成周报: %s ~ %s", wr.StartDate(), wr.EndDate())
	go s.runWeekly(ctx, wr)
	return nil
}

// StopWeekly 停止正在运行的周报生成
func (s *Service) StopWeekly() error {
	if !s.weeklyJob.requestStop() {
		return ErrNotRunning
	}
	logger.Info("🛑 已请求停止周报生成")
	return nil
}

// WeeklyStatus 周报任务状态
func (s *Service) WeeklyStatus() models.JobStatus {
	return s.weeklyJob.status()
}

// collectWeekData 收集一周的按日统计
// 优先汇总已生成的日报，一份日报都没有时退回解析原始日志
func (s *Service) collectWeekData(wr models.WeekRange) (dates []string, perDay map[string]*models.ParsedPeriod, source analytics.WeeklySource, err error) {
	perDay = make(map[string]*models.ParsedPeriod)
	allDates := DatesInRange(wr)

	for _, date := range allDates {
		if !s.repo.DailyExists(date) {
			continue
		}
		content, readErr := s.repo.ReadDaily(date)
		if readErr != nil {
			logger.Warn("读取日报失败，已跳过 %s: %v", date, readErr)
			continue
		}
		day := parser.Parse(content, parser.ReportDialect, date)
		perDay[date] = day
		dates = append(dates, date)
	}

	if len(dates) > 0 {
		return dates, perDay, analytics.SourceDailyReports, nil
	}

	// 没有任何日报，逐日解析原始日志
	for _, date := range allDates {
		filtered, readErr := s.store.FilterByDate(date)
		if readErr != nil {
			return nil, nil, 0, fmt.Errorf("failed to read logs: %w", readErr)
		}
		if strings.TrimSpace(filtered) == "" {
			continue
		}
		day := parser.Parse(filtered, parser.RawLogDialect, date)
		if day.Total() == 0 {
			continue
		}
		perDay[date] = day
		dates = append(dates, date)
	}

	if len(dates) == 0 {
		return nil, nil, 0, ErrNoData
	}
	return dates, perDay, analytics.SourceRawLogs, nil
}

// runWeekly 周报生成主流程
func (s *Service) runWeekly(ctx context.Context, wr models.WeekRange) {
	dates, perDay, source, err := s.collectWeekData(wr)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			logger.Warn("周 %s ~ %s 没有任何数据", wr.StartDate(), wr.EndDate())
			s.weeklyJob.finish(models.JobFailed, "该周没有任何记录", "")
			return
		}
		logger.Error("收集周数据失败: %v", err)
		s.weeklyJob.finish(models.JobFailed, fmt.Sprintf("收集数据失败: %v", err), "")
		return
	}

	summary := analytics.WeeklySummaryText(dates, perDay, source)
	promptText := prompt.BuildWeeklyPrompt(summary)

	aiCfg := s.cfg.GetAI()
	var body strings.Builder
	err = s.ai.Generate(ctx, promptText, inference.GenerateOptions{
		Model:       aiCfg.Model,
		Temperature: aiCfg.Temperature,
		NumPredict:  aiCfg.WeeklyNumPredict,
	}, func(text string) {
		body.WriteString(text)
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("🛑 周报生成已停止: %s ~ %s", wr.StartDate(), wr.EndDate())
			s.weeklyJob.finish(models.JobStopped, "已手动停止", "")
			return
		}
		logger.Error("周报生成失败: %v", err)
		s.weeklyJob.finish(models.JobFailed, fmt.Sprintf("生成失败: %v", err), "")
		return
	}

	content := prompt.WeeklyHeader(wr.StartDate(), wr.EndDate(), time.Now()) + body.String()
	path, err := s.repo.WriteWeekly(wr.StartDate(), wr.EndDate(), content)
	if err != nil {
		logger.Error("写入周报失败: %v", err)
		s.weeklyJob.finish(models.JobFailed, fmt.Sprintf("写入报告失败: %v", err), "")
		return
	}

	logger.Info("✅ 周报生成完成: %s", path)
	s.weeklyJob.finish(models.JobCompleted, "", path)
}

// GetDailyReport 获取指定日期的日报，未生成时先生成再返回
// 阻塞直到生成结束或 ctx 取消；生成失败时返回任务的失败原因
func (s *Service) GetDailyReport(ctx context.Context, date string) (string, error) {
	if _, err := utils.ValidDate(date); err != nil {
		return "", fmt.Errorf("invalid date: %w", err)
	}

	if content, err := s.repo.ReadDaily(date); err == nil {
		return content, nil
	}

	if err := s.StartDaily(date); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		return "", err
	}

	if err := s.waitDaily(ctx); err != nil {
		return "", err
	}

	content, err := s.repo.ReadDaily(date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			status := s.dailyJob.status()
			if status.Message != "" {
				return "", fmt.Errorf("report generation failed: %s", status.Message)
			}
			return "", ErrNotFound
		}
		return "", err
	}
	return content, nil
}

// waitDaily 等待日报任务退出运行态
func (s *Service) waitDaily(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for s.dailyJob.active() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// GetWeeklyReport 获取指定周的周报，未生成时先生成再返回
// 阻塞直到生成结束或 ctx 取消；生成失败时返回任务的失败原因
func (s *Service) GetWeeklyReport(ctx context.Context, weeksAgo int) (models.WeekRange, string, error) {
	wr := WeekFor(time.Now(), weeksAgo)
	if weeksAgo < 0 {
		return wr, "", fmt.Errorf("invalid weeks_ago: %d", weeksAgo)
	}

	if content, err := s.repo.ReadWeekly(wr.StartDate(), wr.EndDate()); err == nil {
		return wr, content, nil
	}

	if err := s.StartWeekly(weeksAgo); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		return wr, "", err
	}

	if err := s.waitWeekly(ctx); err != nil {
		return wr, "", err
	}

	content, err := s.repo.ReadWeekly(wr.StartDate(), wr.EndDate())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			status := s.weeklyJob.status()
			if status.Message != "" {
				return wr, "", fmt.Errorf("report generation failed: %s", status.Message)
			}
			return wr, "", ErrNotFound
		}
		return wr, "", err
	}
	return wr, content, nil
}

// waitWeekly 等待周报任务退出运行态
func (s *Service) waitWeekly(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for s.weeklyJob.active() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// AvailableDates 日志中出现过的全部日期
func (s *Service) AvailableDates() ([]string, error) {
	return s.store.Dates()
}

// AvailableReportDates 已生成日报的全部日期
func (s *Service) AvailableReportDates() ([]string, error) {
	return s.repo.ListDaily()
}

// AvailableWeeklyReports 已生成的周报列表
func (s *Service) AvailableWeeklyReports() ([]models.WeeklyReportInfo, error) {
	return s.repo.ListWeekly()
}
