package logstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"FocusTrackerAI/pkg/logger"
)

// Separator 日志记录之间的分隔线（独占一行的 50 个连字符）
const Separator = "--------------------------------------------------"

// TimestampLayout 日志条目时间戳格式
const TimestampLayout = "2006-01-02 15:04:05"

var datePattern = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2}) \d{2}:\d{2}:\d{2}\]`)

// Store 追加式专注日志文件的读写访问
// 日志是单个不断增长的文本文件，没有任何事务保证
type Store struct {
	path string
	mu   sync.Mutex // 序列化追加写
}

// NewStore 创建日志存储
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path 返回日志文件路径
func (s *Store) Path() string {
	return s.path
}

// ensureFile 确保日志文件存在，不存在时写入文件头
func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	header := "Focus Monitoring Log\n" + strings.Repeat("=", 50) + "\n\n"
	if err := os.WriteFile(s.path, []byte(header), 0644); err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logger.Info("专注日志文件已创建: %s", s.path)
	return nil
}

// Append 追加一条观察记录
// payload 为模型输出的 JSON 文本，按以下格式写入：
//
//	[YYYY-MM-DD HH:MM:SS] Output: {json}
//	--------------------------------------------------
//	(空行)
func (s *Store) Append(ts time.Time, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("[%s] Output: %s\n%s\n\n", ts.Format(TimestampLayout), payload, Separator)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}

// ReadAll 读取完整日志内容
// 文件不存在时返回空字符串，不视为错误
func (s *Store) ReadAll() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read log file: %w", err)
	}
	return string(data), nil
}

// FilterByDate 返回指定日期的原始日志片段
// 按分隔线切分后精确匹配 [YYYY-MM-DD HH:MM:SS] 时间戳，重新拼接为合法日志文本
func (s *Store) FilterByDate(dateStr string) (string, error) {
	content, err := s.ReadAll()
	if err != nil {
		return "", err
	}

	pattern, err := regexp.Compile(`\[` + regexp.QuoteMeta(dateStr) + ` \d{2}:\d{2}:\d{2}\]`)
	if err != nil {
		return "", fmt.Errorf("failed to compile date pattern: %w", err)
	}

	var filtered []string
	for _, segment := range strings.Split(content, Separator) {
		if pattern.MatchString(segment) {
			filtered = append(filtered, segment)
		}
	}

	if len(filtered) == 0 {
		return "", nil
	}

	result := strings.Join(filtered, Separator)
	if !strings.HasSuffix(result, Separator) {
		result += Separator
	}
	return result, nil
}

// Dates 返回日志中出现过的所有日期（升序）
func (s *Store) Dates() ([]string, error) {
	content, err := s.ReadAll()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, match := range datePattern.FindAllStringSubmatch(content, -1) {
		seen[match[1]] = struct{}{}
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// TailSegments 返回最近 count 条非空日志片段（按时间先后顺序）
func (s *Store) TailSegments(count int) ([]string, error) {
	content, err := s.ReadAll()
	if err != nil {
		return nil, err
	}

	var segments []string
	for _, segment := range strings.Split(content, Separator) {
		trimmed := strings.TrimSpace(segment)
		// 跳过文件头和空片段
		if trimmed == "" || !strings.Contains(trimmed, "] Output:") {
			continue
		}
		segments = append(segments, trimmed)
	}

	if count > 0 && len(segments) > count {
		segments = segments[len(segments)-count:]
	}
	return segments, nil
}
