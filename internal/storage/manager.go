package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FocusTrackerAI/pkg/models"

	_ "modernc.org/sqlite"
)

// Manager 存储管理器
// 疲劳快照和干预记录落库，专注日志仍然走追加文本文件
type Manager struct {
	db     *sql.DB
	dbPath string
}

// NewManager 创建存储管理器
func NewManager(dataDir string) (*Manager, error) {
	// 确保数据目录存在
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "focustracker.db")

	// 注意：modernc.org/sqlite 的驱动名称是 "sqlite" 而不是 "sqlite3"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m := &Manager{
		db:     db,
		dbPath: dbPath,
	}

	if err := m.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return m, nil
}

// initSchema 初始化数据库表结构
func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fatigue_snapshots (
		date TEXT PRIMARY KEY,
		score REAL NOT NULL,
		level TEXT NOT NULL,
		color TEXT,
		distraction_count INTEGER NOT NULL,
		total_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS interventions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		reason TEXT NOT NULL,
		delivered BOOLEAN DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_interventions_timestamp ON interventions(timestamp);
	`

	_, err := m.db.Exec(schema)
	return err
}

// Close 关闭数据库
func (m *Manager) Close() error {
	return m.db.Close()
}

// SaveFatigueSnapshot 保存疲劳快照，同一天重复写入时覆盖
func (m *Manager) SaveFatigueSnapshot(snap models.FatigueSnapshot) error {
	query := `
		INSERT INTO fatigue_snapshots (date, score, level, color, distraction_count, total_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			score = excluded.score,
			level = excluded.level,
			color = excluded.color,
			distraction_count = excluded.distraction_count,
			total_count = excluded.total_count,
			created_at = excluded.created_at
	`

	_, err := m.db.Exec(query,
		snap.Date,
		snap.Score,
		snap.Level,
		snap.Color,
		snap.DistractionCount,
		snap.TotalCount,
		snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save fatigue snapshot: %w", err)
	}
	return nil
}

// GetFatigueSnapshots 获取最近 days 天的疲劳快照，按日期倒序
func (m *Manager) GetFatigueSnapshots(days int) ([]models.FatigueSnapshot, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	query := `
		SELECT date, score, level, color, distraction_count, total_count, created_at
		FROM fatigue_snapshots
		WHERE date > ?
		ORDER BY date DESC
	`

	rows, err := m.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query fatigue snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.FatigueSnapshot
	for rows.Next() {
		var snap models.FatigueSnapshot
		var color sql.NullString
		err := rows.Scan(
			&snap.Date,
			&snap.Score,
			&snap.Level,
			&color,
			&snap.DistractionCount,
			&snap.TotalCount,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fatigue snapshot: %w", err)
		}
		if color.Valid {
			snap.Color = color.String
		}
		snaps = append(snaps, snap)
	}

	return snaps, nil
}

// SaveIntervention 保存一次分心干预记录
func (m *Manager) SaveIntervention(iv *models.Intervention) error {
	query := `
		INSERT INTO interventions (timestamp, reason, delivered)
		VALUES (?, ?, ?)
	`

	result, err := m.db.Exec(query, iv.Timestamp, iv.Reason, iv.Delivered)
	if err != nil {
		return fmt.Errorf("failed to insert intervention: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	iv.ID = id
	return nil
}

// GetRecentInterventions 获取最近的 N 条干预记录
func (m *Manager) GetRecentInterventions(limit int) ([]*models.Intervention, error) {
	query := `
		SELECT id, timestamp, reason, delivered
		FROM interventions
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := m.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interventions: %w", err)
	}
	defer rows.Close()

	var items []*models.Intervention
	for rows.Next() {
		iv := &models.Intervention{}
		if err := rows.Scan(&iv.ID, &iv.Timestamp, &iv.Reason, &iv.Delivered); err != nil {
			return nil, fmt.Errorf("failed to scan intervention: %w", err)
		}
		items = append(items, iv)
	}

	return items, nil
}

// CountInterventionsToday 今日干预次数
func (m *Manager) CountInterventionsToday() (int, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int
	err := m.db.QueryRow(`SELECT COUNT(*) FROM interventions WHERE timestamp >= ?`, startOfDay).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count interventions: %w", err)
	}
	return count, nil
}
