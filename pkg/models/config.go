package models

// AppConfig 应用程序配置
type AppConfig struct {
	// 专注监控配置
	Monitor MonitorConfig `json:"monitor"`

	// 工作时间配置
	Schedule WorkSchedule `json:"schedule"`

	// AI 配置
	AI AIConfig `json:"ai"`

	// 存储配置
	Storage StorageConfig `json:"storage"`

	// 服务器配置
	Server ServerConfig `json:"server"`
}

// MonitorConfig 专注监控配置
type MonitorConfig struct {
	Interval       int      `json:"interval"`        // 监控间隔（秒）
	WorkGoal       string   `json:"work_goal"`       // 当前工作目标
	WhiteList      []string `json:"white_list"`      // 工作应用白名单
	BlackList      []string `json:"black_list"`      // 分心应用黑名单
	Quality        int      `json:"quality"`         // JPEG 质量 (1-100)
	MaxWidth       int      `json:"max_width"`       // 发送给模型前的最大图片宽度（像素）
	MaxScreenshots int      `json:"max_screenshots"` // 本地保留的截图数量上限
	Enabled        bool     `json:"enabled"`         // 是否启用监控
}

// WorkSchedule 工作时间配置
type WorkSchedule struct {
	StartTime string `json:"start_time"` // 开始时间 "09:00"
	EndTime   string `json:"end_time"`   // 结束时间 "18:00"
	WorkDays  []int  `json:"work_days"`  // 工作日 (0=周日, 1=周一, ...)
	Enabled   bool   `json:"enabled"`    // 是否启用时间限制
}

// AIConfig AI 配置
type AIConfig struct {
	Endpoint         string  `json:"endpoint"`           // 推理服务地址 (如 http://127.0.0.1:11434)
	Model            string  `json:"model"`              // 报告生成模型名称
	VisionModel      string  `json:"vision_model"`       // 监控分类用的视觉模型名称
	Temperature      float32 `json:"temperature"`        // 温度参数
	DailyNumPredict  int     `json:"daily_num_predict"`  // 日报最大生成 token 数
	WeeklyNumPredict int     `json:"weekly_num_predict"` // 周报最大生成 token 数
	TimeoutSeconds   int     `json:"timeout_seconds"`    // 等待首个响应的超时（秒）
}

// StorageConfig 存储配置
type StorageConfig struct {
	DataDir        string `json:"data_dir"`        // 数据目录
	LogFile        string `json:"log_file"`        // 专注日志文件路径
	ReportsDir     string `json:"reports_dir"`     // 报告根目录
	ScreenshotsDir string `json:"screenshots_dir"` // 截图存储目录
	LogsDir        string `json:"logs_dir"`        // 运行日志目录
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port            int    `json:"port"`              // 端口号
	Host            string `json:"host"`              // 主机地址
	AutoOpenBrowser bool   `json:"auto_open_browser"` // 启动时自动打开浏览器
}

// DefaultConfig 返回默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Monitor: MonitorConfig{
			Interval:       300,
			WorkGoal:       "",
			WhiteList:      []string{},
			BlackList:      []string{},
			Quality:        75,
			MaxWidth:       1280,
			MaxScreenshots: 100,
			Enabled:        true,
		},
		Schedule: WorkSchedule{
			StartTime: "09:00",
			EndTime:   "18:00",
			WorkDays:  []int{1, 2, 3, 4, 5}, // 周一到周五
			Enabled:   true,
		},
		AI: AIConfig{
			Endpoint:         "http://127.0.0.1:11434",
			Model:            "qwen2.5:7b",
			VisionModel:      "qwen2.5vl:7b",
			Temperature:      0.7,
			DailyNumPredict:  4096,
			WeeklyNumPredict: 32768,
			TimeoutSeconds:   30,
		},
		Storage: StorageConfig{
			DataDir:        "./data",
			LogFile:        "./data/focus_log.txt",
			ReportsDir:     "./data/FocusReports",
			ScreenshotsDir: "./data/screenshots",
			LogsDir:        "./data/logs",
		},
		Server: ServerConfig{
			Port:            9528,
			Host:            "localhost",
			AutoOpenBrowser: true,
		},
	}
}
