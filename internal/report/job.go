package report

import (
	"context"
	"sync"

	"FocusTrackerAI/pkg/models"
)

// job 单个作用域（日报或周报）的生成任务
// 同一作用域同时最多一个任务在运行，不同作用域互不影响
type job struct {
	mu         sync.Mutex
	state      models.JobState
	message    string
	reportPath string
	cancel     context.CancelFunc
}

// tryStart 尝试进入运行态
// 已有任务在运行或停止中时返回 false，否则返回用于取消的 context
func (j *job) tryStart() (context.Context, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state == models.JobRunning || j.state == models.JobStopping {
		return nil, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.state = models.JobRunning
	j.message = ""
	j.reportPath = ""
	j.cancel = cancel
	return ctx, true
}

// requestStop 请求停止运行中的任务
// 没有任务在运行时返回 false
func (j *job) requestStop() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != models.JobRunning {
		return false
	}
	j.state = models.JobStopping
	if j.cancel != nil {
		j.cancel()
	}
	return true
}

// finish 任务结束时记录终态
func (j *job) finish(state models.JobState, message, reportPath string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.state = state
	j.message = message
	j.reportPath = reportPath
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
}

// status 当前状态快照
func (j *job) status() models.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	return models.JobStatus{
		State:      j.state,
		StateName:  j.state.String(),
		Message:    j.message,
		ReportPath: j.reportPath,
	}
}

// active 是否有任务尚未结束
func (j *job) active() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state == models.JobRunning || j.state == models.JobStopping
}
