package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"paperperp/internal/logger"
	"paperperp/internal/pkg/convert"
)

// Dynamic 是支持热更新的配置子集, 其余字段改动需要重启进程。
type Dynamic struct {
	LogLevel          string
	DefaultLeverage   int
	DefaultMarginType string
}

// ChangeListener 在配置文件重载成功后触发。
type ChangeListener func(Dynamic)

// Watcher 监听配置文件变更并下发热更新。
type Watcher struct {
	path string
	v    *viper.Viper

	mu        sync.Mutex
	listeners []ChangeListener
}

// NewWatcher 启动对配置文件的监听。
func NewWatcher(path string, listeners ...ChangeListener) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(abs)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("watch config read failed (%s): %w", abs, err)
	}
	w := &Watcher{path: abs, v: v, listeners: listeners}
	v.OnConfigChange(func(evt fsnotify.Event) {
		logger.Infof("配置文件变更: %s (%s)", evt.Name, evt.Op)
		w.notify()
	})
	v.WatchConfig()
	return w, nil
}

// AddListener 追加一个热更新回调。
func (w *Watcher) AddListener(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

func (w *Watcher) notify() {
	dyn := w.dynamic()
	w.mu.Lock()
	listeners := make([]ChangeListener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(dyn)
	}
}

// dynamic 从原始键值里提取热更新子集。
// yaml 里的数字有时被写成字符串, 这里统一走宽松转换。
func (w *Watcher) dynamic() Dynamic {
	return Dynamic{
		LogLevel:          strings.ToLower(strings.TrimSpace(w.v.GetString("app.log_level"))),
		DefaultLeverage:   convert.ToInt(w.v.Get("engine.default_leverage")),
		DefaultMarginType: strings.ToLower(strings.TrimSpace(w.v.GetString("engine.default_margin_type"))),
	}
}
