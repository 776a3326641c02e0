//go:build !windows
// +build !windows

package singleton

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// Mutex 持有单实例锁文件
type Mutex struct {
	file *os.File
	path string
}

// Close 释放锁并删除锁文件
func (m *Mutex) Close() error {
	if m.file == nil {
		return nil
	}
	syscall.Flock(int(m.file.Fd()), syscall.LOCK_UN)
	m.file.Close()
	os.Remove(m.path)
	m.file = nil
	return nil
}

// EnsureSingleInstance 确保只有一个实例运行（非Windows平台用文件锁实现）
// appName: 应用名称，用于锁文件名称
// 返回: 锁对象（需要在程序退出时调用 Close）
func EnsureSingleInstance(appName string) (*Mutex, error) {
	lockPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s_SingleInstance.lock", appName))

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("创建锁文件失败: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("应用已在运行")
	}

	f.Truncate(0)
	f.WriteString(strconv.Itoa(os.Getpid()))

	return &Mutex{file: f, path: lockPath}, nil
}
