package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"FocusTrackerAI/internal/config"
	"FocusTrackerAI/internal/fatigue"
	"FocusTrackerAI/internal/report"
	"FocusTrackerAI/internal/storage"

	"github.com/robfig/cron/v3"
)

// workDaysToCron 将工作日数组转换为cron表达式的星期部分
// workDays: [0,1,2,3,4,5,6] 其中0=周日，1=周一，...，6=周六
// 返回: "0,1,2,3,4,5,6" 或 "*" (如果全选)
func workDaysToCron(workDays []int) string {
	if len(workDays) == 0 {
		return "*" // 空数组视为全选
	}
	if len(workDays) == 7 {
		return "*" // 全部7天
	}

	dayStrs := make([]string, len(workDays))
	for i, day := range workDays {
		dayStrs[i] = fmt.Sprintf("%d", day)
	}

	return strings.Join(dayStrs, ",")
}

// MonitorEngine 定义监控引擎接口，避免循环依赖
type MonitorEngine interface {
	Start() error
	Stop() error
	IsRunning() bool
	CleanupScreenshots() error
}

// Scheduler 任务调度器
type Scheduler struct {
	cron       *cron.Cron
	configMgr  *config.Manager
	storageMgr *storage.Manager
	reports    *report.Service
	fatigue    *fatigue.Calculator
	monitorEng MonitorEngine
	mu         sync.Mutex
	running    bool
}

// NewScheduler 创建任务调度器
func NewScheduler(
	configMgr *config.Manager,
	storageMgr *storage.Manager,
	reports *report.Service,
	fatigueCalc *fatigue.Calculator,
	monitorEng MonitorEngine,
) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		configMgr:  configMgr,
		storageMgr: storageMgr,
		reports:    reports,
		fatigue:    fatigueCalc,
		monitorEng: monitorEng,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	// 添加每日专注报告任务（工作结束前10分钟）
	if err := s.addDailyReportJob(); err != nil {
		fmt.Printf("⚠️ 添加每日报告任务失败: %v\n", err)
	}

	// 每周一上午生成上一周的周报
	if _, err := s.cron.AddFunc("5 9 * * 1", s.runWeeklyReport); err != nil {
		return fmt.Errorf("failed to add weekly report job: %w", err)
	}

	// 每小时刷新当日疲劳度快照（整点过10分钟执行）
	if _, err := s.cron.AddFunc("10 * * * *", s.runFatigueSnapshot); err != nil {
		return fmt.Errorf("failed to add fatigue snapshot job: %w", err)
	}

	// 添加工作开始时间自动启动监控任务
	if err := s.addAutoStartMonitorJob(); err != nil {
		fmt.Printf("⚠️ 添加自动启动监控任务失败: %v\n", err)
	}

	// 添加工作结束时间自动停止监控任务
	if err := s.addAutoStopMonitorJob(); err != nil {
		fmt.Printf("⚠️ 添加自动停止监控任务失败: %v\n", err)
	}

	// 添加截图清理任务（每天凌晨 3 点）
	if _, err := s.cron.AddFunc("0 3 * * *", s.runCleanup); err != nil {
		return fmt.Errorf("failed to add cleanup job: %w", err)
	}

	s.cron.Start()
	s.running = true

	fmt.Println("⏰ 任务调度器已启动")
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.running = false
	fmt.Println("⏰ 任务调度器已停止")
}

// IsRunning 检查是否运行中
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// addDailyReportJob 添加每日专注报告任务
func (s *Scheduler) addDailyReportJob() error {
	schedule := s.configMgr.GetSchedule()

	// 解析工作结束时间
	endTime, err := time.Parse("15:04", schedule.EndTime)
	if err != nil {
		return fmt.Errorf("无效的结束时间格式: %w", err)
	}

	// 计算工作结束前10分钟的时间
	reportTime := endTime.Add(-10 * time.Minute)
	hour := reportTime.Hour()
	minute := reportTime.Minute()

	// 例如：17:50 工作日1,2,3,4,5 -> "50 17 * * 1,2,3,4,5"
	weekDays := workDaysToCron(schedule.WorkDays)
	cronExpr := fmt.Sprintf("%d %d * * %s", minute, hour, weekDays)

	if _, err := s.cron.AddFunc(cronExpr, s.runDailyReport); err != nil {
		return fmt.Errorf("failed to add daily report job: %w", err)
	}

	fmt.Printf("📊 每日专注报告任务已添加 (工作日 %02d:%02d 生成)\n", hour, minute)
	return nil
}

// runDailyReport 生成当天的专注日报
// 已有日报或已有任务在跑时直接跳过
func (s *Scheduler) runDailyReport() {
	today := time.Now().Format("2006-01-02")
	fmt.Printf("📊 开始生成每日专注报告: %s...\n", today)

	if err := s.reports.StartDaily(today); err != nil {
		if err == report.ErrAlreadyRunning {
			fmt.Println("ℹ️ 日报生成任务已在运行中，跳过")
			return
		}
		fmt.Printf("❌ 启动日报生成失败: %v\n", err)
	}
}

// runWeeklyReport 生成上一周的周报
func (s *Scheduler) runWeeklyReport() {
	fmt.Println("📊 开始生成上周的专注周报...")

	if err := s.reports.StartWeekly(1); err != nil {
		if err == report.ErrAlreadyRunning {
			fmt.Println("ℹ️ 周报生成任务已在运行中，跳过")
			return
		}
		fmt.Printf("❌ 启动周报生成失败: %v\n", err)
	}
}

// runFatigueSnapshot 刷新当日疲劳度快照并落库
func (s *Scheduler) runFatigueSnapshot() {
	today := time.Now().Format("2006-01-02")

	snap, err := s.fatigue.Snapshot(today)
	if err != nil {
		fmt.Printf("⚠️ 计算疲劳度快照失败: %v\n", err)
		return
	}
	if snap.TotalCount == 0 {
		return
	}

	if err := s.storageMgr.SaveFatigueSnapshot(snap); err != nil {
		fmt.Printf("⚠️ 保存疲劳度快照失败: %v\n", err)
		return
	}

	fmt.Printf("🩺 疲劳度快照已更新: %s 分数 %.1f (%s)\n", today, snap.Score, snap.Level)
}

// runCleanup 清理超出保留上限的旧截图
func (s *Scheduler) runCleanup() {
	fmt.Println("🧹 开始清理旧截图...")

	if err := s.monitorEng.CleanupScreenshots(); err != nil {
		fmt.Printf("❌ 清理失败: %v\n", err)
		return
	}

	fmt.Println("✅ 截图清理完成")
}

// addAutoStartMonitorJob 添加工作开始时间自动启动监控的任务
func (s *Scheduler) addAutoStartMonitorJob() error {
	schedule := s.configMgr.GetSchedule()

	startTime, err := time.Parse("15:04", schedule.StartTime)
	if err != nil {
		return fmt.Errorf("无效的开始时间格式: %w", err)
	}

	hour := startTime.Hour()
	minute := startTime.Minute()

	weekDays := workDaysToCron(schedule.WorkDays)
	cronExpr := fmt.Sprintf("%d %d * * %s", minute, hour, weekDays)

	if _, err := s.cron.AddFunc(cronExpr, s.autoStartMonitor); err != nil {
		return fmt.Errorf("failed to add auto-start monitor job: %w", err)
	}

	fmt.Printf("⏰ 工作时间自动启动监控任务已添加 (工作日 %02d:%02d 自动启动)\n", hour, minute)
	return nil
}

// autoStartMonitor 自动启动监控（在工作开始时间）
func (s *Scheduler) autoStartMonitor() {
	fmt.Println("⏰ 到达工作开始时间，检查是否需要自动启动监控...")

	if s.monitorEng.IsRunning() {
		fmt.Println("ℹ️ 监控引擎已在运行中，无需启动")
		return
	}

	fmt.Println("🚀 自动启动监控引擎...")
	if err := s.monitorEng.Start(); err != nil {
		fmt.Printf("❌ 自动启动监控引擎失败: %v\n", err)
		return
	}

	fmt.Println("✅ 监控引擎已自动启动")
}

// addAutoStopMonitorJob 添加工作结束时间自动停止监控的任务
func (s *Scheduler) addAutoStopMonitorJob() error {
	schedule := s.configMgr.GetSchedule()

	endTime, err := time.Parse("15:04", schedule.EndTime)
	if err != nil {
		return fmt.Errorf("无效的结束时间格式: %w", err)
	}

	hour := endTime.Hour()
	minute := endTime.Minute()

	weekDays := workDaysToCron(schedule.WorkDays)
	cronExpr := fmt.Sprintf("%d %d * * %s", minute, hour, weekDays)

	if _, err := s.cron.AddFunc(cronExpr, s.autoStopMonitor); err != nil {
		return fmt.Errorf("failed to add auto-stop monitor job: %w", err)
	}

	fmt.Printf("⏰ 工作时间自动停止监控任务已添加 (工作日 %02d:%02d 自动停止)\n", hour, minute)
	return nil
}

// autoStopMonitor 自动停止监控（在工作结束时间）
func (s *Scheduler) autoStopMonitor() {
	fmt.Println("⏰ 到达工作结束时间，检查是否需要自动停止监控...")

	if !s.monitorEng.IsRunning() {
		fmt.Println("ℹ️ 监控引擎未运行，无需停止")
		return
	}

	fmt.Println("🛑 自动停止监控引擎...")
	if err := s.monitorEng.Stop(); err != nil {
		fmt.Printf("❌ 自动停止监控引擎失败: %v\n", err)
		return
	}

	fmt.Println("✅ 监控引擎已自动停止")
}
