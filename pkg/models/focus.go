package models

import "time"

// FocusStatus 单条观察记录的专注状态
type FocusStatus int

const (
	StatusFocused FocusStatus = iota
	StatusDistracted
)

// String 返回状态的可读名称
func (s FocusStatus) String() string {
	if s == StatusFocused {
		return "focused"
	}
	return "distracted"
}

// LogRecord 一条专注观察记录
// Reason 仅在分心时有内容，专注记录恒为空字符串
type LogRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Status    FocusStatus `json:"status"`
	Reason    string      `json:"reason"`
}

// ParsedPeriod 一次解析（单日或单个报告文件）的结构化结果
type ParsedPeriod struct {
	Date             string      `json:"date"` // 解析目标日期（可为空）
	Records          []LogRecord `json:"records"`
	FocusCount       int         `json:"focus_count"`
	DistractionCount int         `json:"distraction_count"`
	// DistractionReasons 分心原因 -> 出现次数
	DistractionReasons map[string]int `json:"distraction_reasons"`
	// ReasonOrder 按首次出现顺序排列的原因，排序并列时用它保持稳定
	ReasonOrder []string `json:"-"`
}

// Total 记录总数
func (p *ParsedPeriod) Total() int {
	return p.FocusCount + p.DistractionCount
}

// DistractionRatio 分心比例，无记录时为 0
func (p *ParsedPeriod) DistractionRatio() float64 {
	total := p.Total()
	if total == 0 {
		return 0
	}
	return float64(p.DistractionCount) / float64(total)
}

// BucketCount 一个时间桶内的专注/分心计数
type BucketCount struct {
	Focus       int `json:"focus"`
	Distraction int `json:"distraction"`
}

// Total 桶内记录总数
func (b BucketCount) Total() int {
	return b.Focus + b.Distraction
}

// FocusRate 桶内专注率，空桶为 0
func (b BucketCount) FocusRate() float64 {
	total := b.Total()
	if total == 0 {
		return 0
	}
	return float64(b.Focus) / float64(total)
}

// TimeBucketStats 按时段和小时聚合的专注统计
type TimeBucketStats struct {
	Periods map[string]BucketCount `json:"periods"` // 3 个固定时段
	Hours   [24]BucketCount        `json:"hours"`   // 24 个小时桶

	HighFocusPeriods       []string `json:"high_focus_periods"`
	HighDistractionPeriods []string `json:"high_distraction_periods"`
	HighFocusHours         []string `json:"high_focus_hours"`
	HighDistractionHours   []string `json:"high_distraction_hours"`
}

// ReasonCount 分心原因及其出现次数（排名后有序）
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// JobState 报告生成任务状态
type JobState int32

const (
	JobIdle JobState = iota
	JobRunning
	JobStopping
	JobStopped
	JobCompleted
	JobFailed
)

// String 返回状态的可读名称
func (s JobState) String() string {
	switch s {
	case JobIdle:
		return "idle"
	case JobRunning:
		return "running"
	case JobStopping:
		return "stopping"
	case JobStopped:
		return "stopped"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// JobStatus 任务状态快照，供状态查询接口返回
type JobStatus struct {
	State      JobState `json:"-"`
	StateName  string   `json:"state"`
	Message    string   `json:"message,omitempty"`     // 失败原因或结果说明
	ReportPath string   `json:"report_path,omitempty"` // 完成时的报告路径
}

// WeekRange 一个周一开始的 7 天范围（含首尾）
type WeekRange struct {
	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// StartDate 起始日期 (YYYY-MM-DD)
func (w WeekRange) StartDate() string { return w.Start.Format("2006-01-02") }

// EndDate 结束日期 (YYYY-MM-DD)
func (w WeekRange) EndDate() string { return w.End.Format("2006-01-02") }

// WeeklyReportInfo 已生成周报的元信息
type WeeklyReportInfo struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	FilePath  string `json:"file_path"`
}

// FatigueScore 疲劳度评估结果
type FatigueScore struct {
	Score              float64  `json:"score"`
	Level              string   `json:"level"`
	Advice             string   `json:"advice"`
	Color              string   `json:"color"`
	Intervene          bool     `json:"intervene"`
	DistractionCount   int      `json:"distraction_count"`
	TotalCount         int      `json:"total_count"`
	DistractionReasons []string `json:"distraction_reasons"`
}

// FatigueSnapshot 某一天的疲劳度快照（持久化到数据库）
type FatigueSnapshot struct {
	Date             string    `json:"date"`
	Score            float64   `json:"score"`
	Level            string    `json:"level"`
	Color            string    `json:"color"`
	DistractionCount int       `json:"distraction_count"`
	TotalCount       int       `json:"total_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// Intervention 一次分心干预记录
type Intervention struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Delivered bool      `json:"delivered"`
}

// MonitorStatus 监控服务状态
type MonitorStatus struct {
	Running     bool      `json:"is_running"`
	WorkGoal    string    `json:"work_goal,omitempty"`
	WhiteList   []string  `json:"white_list,omitempty"`
	BlackList   []string  `json:"black_list,omitempty"`
	LastCheck   time.Time `json:"last_check,omitempty"`
	LastStatus  string    `json:"last_status,omitempty"`
	ChecksToday int       `json:"checks_today"`
}
