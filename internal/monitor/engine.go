package monitor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"FocusTrackerAI/internal/config"
	"FocusTrackerAI/internal/inference"
	"FocusTrackerAI/internal/logstore"
	"FocusTrackerAI/internal/storage"
	"FocusTrackerAI/pkg/logger"
	"FocusTrackerAI/pkg/models"
	"FocusTrackerAI/pkg/screenstate"
	"FocusTrackerAI/pkg/utils"

	"github.com/kbinani/screenshot"
	"github.com/nfnt/resize"
)

// thinkPattern 模型输出中的推理段，判定前去掉
var thinkPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// verdict 模型返回的判定结果
type verdict struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Engine 专注监控引擎
// 周期性截屏并交给视觉模型判定专注状态，结果追加到专注日志
type Engine struct {
	configMgr *config.Manager
	store     *logstore.Store
	ai        *inference.Client
	storage   *storage.Manager

	ticker  *time.Ticker
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex

	lastCheck   time.Time
	lastStatus  string
	checksToday int
	checksDate  string
}

// NewEngine 创建监控引擎
func NewEngine(configMgr *config.Manager, store *logstore.Store, ai *inference.Client, storageMgr *storage.Manager) *Engine {
	return &Engine{
		configMgr: configMgr,
		store:     store,
		ai:        ai,
		storage:   storageMgr,
	}
}

// Start 启动监控引擎
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		logger.Warn("监控引擎已在运行中")
		return fmt.Errorf("monitor engine already running")
	}

	cfg := e.configMgr.GetMonitor()
	if !cfg.Enabled {
		logger.Warn("监控功能未启用")
		return fmt.Errorf("monitor is disabled in config")
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.ticker = time.NewTicker(time.Duration(cfg.Interval) * time.Second)
	e.running = true

	go e.monitorLoop()

	logger.Info("监控引擎已启动,间隔: %d秒", cfg.Interval)
	return nil
}

// Stop 停止监控引擎
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return fmt.Errorf("monitor engine not running")
	}

	e.cancel()
	e.ticker.Stop()
	e.running = false

	logger.Info("监控引擎已停止")
	return nil
}

// IsRunning 检查是否运行中
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Status 当前监控状态
func (e *Engine) Status() models.MonitorStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cfg := e.configMgr.GetMonitor()
	return models.MonitorStatus{
		Running:     e.running,
		WorkGoal:    cfg.WorkGoal,
		WhiteList:   cfg.WhiteList,
		BlackList:   cfg.BlackList,
		LastCheck:   e.lastCheck,
		LastStatus:  e.lastStatus,
		ChecksToday: e.checksToday,
	}
}

// monitorLoop 监控循环
func (e *Engine) monitorLoop() {
	logger.Info("监控循环已启动")
	for {
		select {
		case <-e.ctx.Done():
			logger.Info("监控循环已停止")
			return
		case <-e.ticker.C:
			if e.shouldCheck() {
				if err := e.checkOnce(); err != nil {
					logger.Error("专注检测失败: %v", err)
				}
			}
		}
	}
}

// shouldCheck 检查当前是否处于工作时段且屏幕可用
func (e *Engine) shouldCheck() bool {
	// 屏幕锁定或屏保中不截屏
	if !screenstate.IsScreenActive() {
		logger.Debug("屏幕未激活,跳过本次检测")
		return false
	}

	schedule := e.configMgr.GetSchedule()
	if !schedule.Enabled {
		return true
	}

	now := time.Now()
	if !utils.IsDayInList(now.Weekday(), schedule.WorkDays) {
		return false
	}

	inRange, err := utils.TimeInRange(schedule.StartTime, schedule.EndTime)
	if err != nil {
		logger.Error("时间范围检查错误: %v", err)
		return false
	}

	return inRange
}

// checkOnce 执行一次截屏与专注判定
func (e *Engine) checkOnce() error {
	if err := e.CleanupScreenshots(); err != nil {
		logger.Warn("截图清理失败: %v", err)
	}

	imageB64, err := e.captureScreen()
	if err != nil {
		return fmt.Errorf("failed to capture screen: %w", err)
	}

	v, raw, err := e.classify(imageB64)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := e.store.Append(now, raw); err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}

	e.recordCheck(now, v.Status)

	if strings.HasPrefix(v.Status, "1.") {
		logger.Info("🎯 当前状态: 专注")
		return nil
	}

	logger.Info("⚠️ 当前状态: 分心 - %s", v.Reason)
	iv := &models.Intervention{
		Timestamp: now,
		Reason:    v.Reason,
		Delivered: true,
	}
	if err := e.storage.SaveIntervention(iv); err != nil {
		logger.Warn("保存干预记录失败: %v", err)
	}
	return nil
}

// recordCheck 更新最近一次检测的状态
func (e *Engine) recordCheck(now time.Time, status string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := now.Format("2006-01-02")
	if e.checksDate != today {
		e.checksDate = today
		e.checksToday = 0
	}
	e.checksToday++
	e.lastCheck = now
	e.lastStatus = status
}

// captureScreen 截取主屏幕并压缩为 base64 JPEG
func (e *Engine) captureScreen() (string, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return "", fmt.Errorf("no active displays")
	}

	bounds := screenshot.GetDisplayBounds(0)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}

	cfg := e.configMgr.GetMonitor()

	// 缩小到配置宽度,降低视觉模型的输入体积
	var scaled image.Image = img
	if bounds.Dx() > cfg.MaxWidth {
		scaled = resize.Resize(uint(cfg.MaxWidth), 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	opt := jpeg.Options{Quality: cfg.Quality}
	if err := jpeg.Encode(&buf, scaled, &opt); err != nil {
		return "", fmt.Errorf("failed to encode JPEG: %w", err)
	}

	if err := e.saveScreenshot(buf.Bytes()); err != nil {
		logger.Warn("截图保存失败: %v", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// saveScreenshot 把截图落盘,便于排查误判
func (e *Engine) saveScreenshot(data []byte) error {
	storageCfg := e.configMgr.GetStorage()
	dir := storageCfg.ScreenshotsDir
	if dir == "" {
		dir = filepath.Join(storageCfg.DataDir, "screenshots")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := fmt.Sprintf("screenshot_%d.jpg", time.Now().Unix())
	return os.WriteFile(filepath.Join(dir, filename), data, 0644)
}

// CleanupScreenshots 截图数量超限时删除最旧的文件
func (e *Engine) CleanupScreenshots() error {
	cfg := e.configMgr.GetMonitor()
	storageCfg := e.configMgr.GetStorage()
	dir := storageCfg.ScreenshotsDir
	if dir == "" {
		dir = filepath.Join(storageCfg.DataDir, "screenshots")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type shot struct {
		path    string
		modTime time.Time
	}
	var shots []shot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "screenshot_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		shots = append(shots, shot{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	if len(shots) <= cfg.MaxScreenshots {
		return nil
	}

	sort.Slice(shots, func(i, j int) bool {
		return shots[i].modTime.Before(shots[j].modTime)
	})

	excess := len(shots) - cfg.MaxScreenshots
	logger.Info("🧹 截图数量达到 %d,清理最旧的 %d 个文件", len(shots), excess)
	for i := 0; i < excess; i++ {
		if err := os.Remove(shots[i].path); err != nil {
			logger.Warn("删除旧截图失败: %v", err)
		}
	}
	return nil
}

// classify 调用视觉模型判定专注状态
// 返回解析后的判定和写入日志用的原始 JSON 文本
func (e *Engine) classify(imageB64 string) (verdict, string, error) {
	monitorCfg := e.configMgr.GetMonitor()
	aiCfg := e.configMgr.GetAI()

	systemPrompt := `You are an intelligent and empathetic focus supervision assistant. Your task is to reasonably analyze the user's work status, and only give reminders when truly necessary. Please judge the user's status according to the following rules:
1. Focused: Meets the following condition:
   - Screen content is basically related to the work goal

2. Distracted: Only judged as distracted if ALL the following conditions are met:
   - Using applications obviously unrelated to work
   - Using applications in the blacklist
   - Screen content is completely unrelated to the work goal

Judgment principles:
- Use a lenient standard to avoid excessive intervention
- Allow reasonable work switching and short breaks
- Only remind when clear distraction is detected
- Prioritize user experience and avoid frequent interruptions

Notes:
- Application names may have case/locale differences, please match flexibly
- Whitelisted apps are considered essential for work and not counted as distractions
- Do not over-interpret background elements like desktop icons

Output format (output ONLY one of the following JSON formats):
- Focused state:
  {"status": "1. Focused"}
- Clear distracted state:
  {"status": "2. Distracted", "reason": "<specific and friendly description of distraction reason>"}
Ensure your output only contains the JSON above, do not add any other content.`

	userPrompt := fmt.Sprintf(
		"Work goal: %s\nWhitelist set: %v\nBlacklist set: %v\nThe attached image is the current screen.",
		monitorCfg.WorkGoal, monitorCfg.WhiteList, monitorCfg.BlackList)

	model := aiCfg.VisionModel
	if model == "" {
		model = aiCfg.Model
	}

	ctx, cancel := context.WithTimeout(e.ctx, 2*time.Minute)
	defer cancel()

	output, err := e.ai.Chat(ctx, []inference.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt, Images: []string{imageB64}},
	}, model, aiCfg.Temperature)
	if err != nil {
		return verdict{}, "", fmt.Errorf("model call failed: %w", err)
	}

	// 去掉推理段后剩下的才是判定 JSON
	cleaned := strings.TrimSpace(thinkPattern.ReplaceAllString(output, ""))

	var v verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return verdict{}, "", fmt.Errorf("failed to parse model verdict: %w (raw: %s)", err, utils.TruncateString(cleaned, 200))
	}
	if v.Status == "" {
		return verdict{}, "", fmt.Errorf("model verdict missing status (raw: %s)", utils.TruncateString(cleaned, 200))
	}

	// 以规范化的 JSON 写入日志,保证后续解析稳定
	raw, err := json.Marshal(v)
	if err != nil {
		return verdict{}, "", fmt.Errorf("failed to marshal verdict: %w", err)
	}
	return v, string(raw), nil
}
