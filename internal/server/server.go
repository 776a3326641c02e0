package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"FocusTrackerAI/internal/config"
	"FocusTrackerAI/internal/fatigue"
	"FocusTrackerAI/internal/logstore"
	"FocusTrackerAI/internal/monitor"
	"FocusTrackerAI/internal/report"
	"FocusTrackerAI/internal/storage"
	"FocusTrackerAI/pkg/models"

	"github.com/gin-gonic/gin"
)

// Server Web 服务器
type Server struct {
	router      *gin.Engine
	configMgr   *config.Manager
	storageMgr  *storage.Manager
	store       *logstore.Store
	monitorEng  *monitor.Engine
	reports     *report.Service
	fatigueCalc *fatigue.Calculator
	addr        string
	version     string
	httpServer  *http.Server
}

// NewServer 创建 Web 服务器
func NewServer(
	configMgr *config.Manager,
	storageMgr *storage.Manager,
	store *logstore.Store,
	monitorEng *monitor.Engine,
	reports *report.Service,
	fatigueCalc *fatigue.Calculator,
	version string,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	serverCfg := configMgr.GetServer()
	addr := fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port)

	s := &Server{
		router:      router,
		configMgr:   configMgr,
		storageMgr:  storageMgr,
		store:       store,
		monitorEng:  monitorEng,
		reports:     reports,
		fatigueCalc: fatigueCalc,
		addr:        addr,
		version:     version,
	}

	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		// 系统信息
		api.GET("/version", s.handleGetVersion)

		// 配置管理
		api.GET("/config", s.handleGetConfig)
		api.PUT("/config", s.handleUpdateConfig)

		// 专注监控
		mon := api.Group("/monitor")
		{
			mon.POST("/start", s.handleStartMonitor)
			mon.POST("/stop", s.handleStopMonitor)
			mon.GET("/status", s.handleMonitorStatus)
			mon.GET("/recent_logs", s.handleRecentLogs)
			mon.GET("/interventions", s.handleRecentInterventions)
		}

		// 疲劳度
		fat := api.Group("/fatigue")
		{
			fat.GET("/current", s.handleCurrentFatigue)
			fat.GET("/report", s.handleFatigueReport)
			fat.GET("/historical", s.handleHistoricalFatigue)
			fat.GET("/snapshots", s.handleFatigueSnapshots)
		}

		// 报告分析
		analysis := api.Group("/analysis")
		{
			analysis.POST("/start_daily_analysis", s.handleStartDailyAnalysis)
			analysis.POST("/stop_daily_analysis", s.handleStopDailyAnalysis)
			analysis.GET("/analysis_status", s.handleDailyAnalysisStatus)
			analysis.GET("/available_dates", s.handleAvailableDates)
			analysis.GET("/daily_report", s.handleDailyReport)

			analysis.POST("/start_weekly_analysis", s.handleStartWeeklyAnalysis)
			analysis.POST("/stop_weekly_analysis", s.handleStopWeeklyAnalysis)
			analysis.GET("/weekly_analysis_status", s.handleWeeklyAnalysisStatus)
			analysis.GET("/available_weeks", s.handleAvailableWeeks)
			analysis.GET("/weekly_report", s.handleWeeklyReport)
		}
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	fmt.Printf("🌐 Web服务器启动: http://%s\n", s.addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}

	fmt.Println("🛑 正在关闭 Web 服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("⚠️ 服务器关闭错误: %v\n", err)
		return err
	}

	fmt.Println("✅ Web 服务器已关闭")
	return nil
}

// ===== 处理函数 =====

// handleGetVersion 获取版本信息
func (s *Server) handleGetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": s.version,
		"name":    "FocusTracker AI",
	})
}

// handleGetConfig 获取配置
func (s *Server) handleGetConfig(c *gin.Context) {
	cfg := s.configMgr.Get()
	c.JSON(http.StatusOK, cfg)
}

// handleUpdateConfig 更新配置
func (s *Server) handleUpdateConfig(c *gin.Context) {
	var newConfig models.AppConfig
	if err := c.ShouldBindJSON(&newConfig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.configMgr.Update(func(cfg *models.AppConfig) {
		*cfg = newConfig
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "配置已更新"})
}

// handleStartMonitor 启动专注监控
// 请求体可以携带工作目标和黑白名单，有值时先写入配置
func (s *Server) handleStartMonitor(c *gin.Context) {
	var req struct {
		WorkGoal  string   `json:"work_goal"`
		WhiteList []string `json:"white_list"`
		BlackList []string `json:"black_list"`
	}
	_ = c.ShouldBindJSON(&req)

	if req.WorkGoal != "" || req.WhiteList != nil || req.BlackList != nil {
		if err := s.configMgr.Update(func(cfg *models.AppConfig) {
			if req.WorkGoal != "" {
				cfg.Monitor.WorkGoal = req.WorkGoal
			}
			if req.WhiteList != nil {
				cfg.Monitor.WhiteList = req.WhiteList
			}
			if req.BlackList != nil {
				cfg.Monitor.BlackList = req.BlackList
			}
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	if err := s.monitorEng.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "监控已启动"})
}

// handleStopMonitor 停止专注监控
func (s *Server) handleStopMonitor(c *gin.Context) {
	if err := s.monitorEng.Stop(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "监控已停止"})
}

// handleMonitorStatus 监控状态
func (s *Server) handleMonitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitorEng.Status())
}

// handleRecentLogs 最近的专注日志片段
func (s *Server) handleRecentLogs(c *gin.Context) {
	count := 10
	if v := c.Query("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	segments, err := s.store.TailSegments(count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": segments})
}

// handleRecentInterventions 最近的分心干预记录
func (s *Server) handleRecentInterventions(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := s.storageMgr.GetRecentInterventions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	todayCount, err := s.storageMgr.CountInterventionsToday()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interventions": items,
		"today_count":   todayCount,
	})
}

// handleFatigueSnapshots 数据库中的每日疲劳度快照
func (s *Server) handleFatigueSnapshots(c *gin.Context) {
	days := 30
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	snaps, err := s.storageMgr.GetFatigueSnapshots(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// handleCurrentFatigue 当前疲劳度
func (s *Server) handleCurrentFatigue(c *gin.Context) {
	today := time.Now().Format("2006-01-02")
	score, err := s.fatigueCalc.Current(today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("计算疲劳度失败: %v", err)})
		return
	}

	c.JSON(http.StatusOK, score)
}

// handleFatigueReport 疲劳度干预报告
func (s *Server) handleFatigueReport(c *gin.Context) {
	today := time.Now().Format("2006-01-02")
	rep, err := s.fatigueCalc.InterventionReport(c.Request.Context(), today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("生成疲劳度报告失败: %v", err)})
		return
	}

	c.JSON(http.StatusOK, rep)
}

// handleHistoricalFatigue 历史疲劳度数据
func (s *Server) handleHistoricalFatigue(c *gin.Context) {
	days := 7
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	data, err := s.fatigueCalc.Historical(days, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("获取历史疲劳度数据失败: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"historical_data": data})
}

// handleStartDailyAnalysis 启动日报生成
func (s *Server) handleStartDailyAnalysis(c *gin.Context) {
	var req struct {
		Date string `json:"date"`
	}
	_ = c.ShouldBindJSON(&req)

	date := req.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	if err := s.reports.StartDaily(date); err != nil {
		if errors.Is(err, report.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "日报生成任务已在运行中"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "日报生成已启动", "date": date})
}

// handleStopDailyAnalysis 停止日报生成
func (s *Server) handleStopDailyAnalysis(c *gin.Context) {
	if err := s.reports.StopDaily(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "当前没有运行中的日报生成任务"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已请求停止日报生成"})
}

// handleDailyAnalysisStatus 日报任务状态
func (s *Server) handleDailyAnalysisStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.reports.DailyStatus())
}

// handleAvailableDates 日志中有记录的日期和已生成日报的日期
func (s *Server) handleAvailableDates(c *gin.Context) {
	dates, err := s.reports.AvailableDates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	reportDates, err := s.reports.AvailableReportDates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available_dates": dates,
		"report_dates":    reportDates,
	})
}

// handleDailyReport 获取日报，没有时现场生成
func (s *Server) handleDailyReport(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	content, err := s.reports.GetDailyReport(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "该日期没有可用的日报"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "report": content})
}

// handleStartWeeklyAnalysis 启动周报生成
func (s *Server) handleStartWeeklyAnalysis(c *gin.Context) {
	var req struct {
		WeeksAgo int `json:"weeks_ago"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := s.reports.StartWeekly(req.WeeksAgo); err != nil {
		if errors.Is(err, report.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "周报生成任务已在运行中"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "周报生成已启动"})
}

// handleStopWeeklyAnalysis 停止周报生成
func (s *Server) handleStopWeeklyAnalysis(c *gin.Context) {
	if err := s.reports.StopWeekly(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "当前没有运行中的周报生成任务"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已请求停止周报生成"})
}

// handleWeeklyAnalysisStatus 周报任务状态
func (s *Server) handleWeeklyAnalysisStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.reports.WeeklyStatus())
}

// handleAvailableWeeks 已生成的周报列表
func (s *Server) handleAvailableWeeks(c *gin.Context) {
	weeks, err := s.reports.AvailableWeeklyReports()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"available_weeks": weeks})
}

// handleWeeklyReport 获取周报，没有时现场生成
func (s *Server) handleWeeklyReport(c *gin.Context) {
	weeksAgo := 0
	if v := c.Query("weeks_ago"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 weeks_ago 参数"})
			return
		}
		weeksAgo = n
	}

	wr, content, err := s.reports.GetWeeklyReport(c.Request.Context(), weeksAgo)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "该周没有可用的周报"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"start_date": wr.StartDate(),
		"end_date":   wr.EndDate(),
		"report":     content,
	})
}
