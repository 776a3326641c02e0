package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"FocusTrackerAI/pkg/models"
)

// ErrNotFound 请求的报告文件尚未生成
var ErrNotFound = errors.New("report not found")

const (
	dailyDirName  = "daily_report"
	weeklyDirName = "weekly_report"
)

var (
	// dailyFilePattern 日报文件名中的日期
	dailyFilePattern = regexp.MustCompile(`^FocusReport_(\d{4}-\d{2}-\d{2})\.txt$`)
	// weeklyFilePattern 周报文件名中的日期范围
	weeklyFilePattern = regexp.MustCompile(`^WeeklyReport_(\d{4}-\d{2}-\d{2})_to_(\d{4}-\d{2}-\d{2})\.md$`)
)

// Repository 报告文件仓库
// 报告文件是生成结果的唯一真相：文件存在即视为已生成，
// 启动任务前先查文件而不是查任务状态
type Repository struct {
	baseDir string
}

// NewRepository 创建报告仓库并确保目录存在
func NewRepository(baseDir string) (*Repository, error) {
	r := &Repository{baseDir: baseDir}
	for _, dir := range []string{r.dailyDir(), r.weeklyDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	return r, nil
}

func (r *Repository) dailyDir() string {
	return filepath.Join(r.baseDir, dailyDirName)
}

func (r *Repository) weeklyDir() string {
	return filepath.Join(r.baseDir, weeklyDirName)
}

// DailyPath 指定日期日报的文件路径
func (r *Repository) DailyPath(date string) string {
	return filepath.Join(r.dailyDir(), fmt.Sprintf("FocusReport_%s.txt", date))
}

// WeeklyPath 指定日期范围周报的文件路径
func (r *Repository) WeeklyPath(startDate, endDate string) string {
	return filepath.Join(r.weeklyDir(), fmt.Sprintf("WeeklyReport_%s_to_%s.md", startDate, endDate))
}

// DailyExists 指定日期的日报是否已生成
func (r *Repository) DailyExists(date string) bool {
	_, err := os.Stat(r.DailyPath(date))
	return err == nil
}

// WeeklyExists 指定范围的周报是否已生成
func (r *Repository) WeeklyExists(startDate, endDate string) bool {
	_, err := os.Stat(r.WeeklyPath(startDate, endDate))
	return err == nil
}

// ReadDaily 读取日报内容，未生成时返回 ErrNotFound
func (r *Repository) ReadDaily(date string) (string, error) {
	data, err := os.ReadFile(r.DailyPath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read daily report: %w", err)
	}
	return string(data), nil
}

// ReadWeekly 读取周报内容，未生成时返回 ErrNotFound
func (r *Repository) ReadWeekly(startDate, endDate string) (string, error) {
	data, err := os.ReadFile(r.WeeklyPath(startDate, endDate))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read weekly report: %w", err)
	}
	return string(data), nil
}

// WriteDaily 写入日报，返回文件路径
// 只在生成成功后调用，中途取消或失败不应产生文件
func (r *Repository) WriteDaily(date, content string) (string, error) {
	path := r.DailyPath(date)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write daily report: %w", err)
	}
	return path, nil
}

// WriteWeekly 写入周报，返回文件路径
func (r *Repository) WriteWeekly(startDate, endDate, content string) (string, error) {
	path := r.WeeklyPath(startDate, endDate)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write weekly report: %w", err)
	}
	return path, nil
}

// ListDaily 列出所有已生成日报的日期，升序
func (r *Repository) ListDaily() ([]string, error) {
	entries, err := os.ReadDir(r.dailyDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list daily reports: %w", err)
	}

	var dates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := dailyFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		dates = append(dates, m[1])
	}

	sort.Strings(dates)
	return dates, nil
}

// ListWeekly 列出所有已生成的周报，按起始日期倒序
func (r *Repository) ListWeekly() ([]models.WeeklyReportInfo, error) {
	entries, err := os.ReadDir(r.weeklyDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list weekly reports: %w", err)
	}

	var reports []models.WeeklyReportInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := weeklyFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		reports = append(reports, models.WeeklyReportInfo{
			StartDate: m[1],
			EndDate:   m[2],
			FilePath:  filepath.Join(r.weeklyDir(), entry.Name()),
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartDate > reports[j].StartDate
	})
	return reports, nil
}
