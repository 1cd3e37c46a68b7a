// Package filestore 用单个 JSON 文件保存引擎状态快照。
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"paperperp/internal/engine"
	"paperperp/internal/logger"
	"paperperp/internal/store/statejson"
)

type FileStore struct {
	path       string
	maxHistory int
}

func New(path string, maxHistory int) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("filestore: snapshot path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("filestore: create snapshot dir: %w", err)
		}
	}
	return &FileStore{path: path, maxHistory: maxHistory}, nil
}

// Save 先写临时文件再重命名，避免进程中断留下半截快照。
func (s *FileStore) Save(_ context.Context, st engine.State) error {
	data, err := statejson.Encode(st)
	if err != nil {
		return fmt.Errorf("filestore: encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("filestore: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("filestore: replace snapshot: %w", err)
	}
	return nil
}

// Load 读取并解码快照。文件缺失或载荷不可用都按"无快照"处理。
func (s *FileStore) Load(_ context.Context) (engine.State, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return engine.State{}, false, nil
		}
		return engine.State{}, false, fmt.Errorf("filestore: read snapshot: %w", err)
	}
	st, ok := statejson.Decode(data, s.maxHistory)
	if !ok {
		logger.Warnf("filestore: snapshot %s unusable, starting fresh", s.path)
		return engine.State{}, false, nil
	}
	return st, true, nil
}

func (s *FileStore) Close() error {
	return nil
}
