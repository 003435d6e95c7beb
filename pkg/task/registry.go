package task

import (
	"fmt"
	"sort"
)

// Registry 是调用方持有的任务表，运行前填充，运行期间只读。
type Registry struct {
	tasks map[string]Task
}

// NewRegistry 创建并注册任务。
func NewRegistry(tasks ...Task) (*Registry, error) {
	r := &Registry{tasks: make(map[string]Task, len(tasks))}
	for _, t := range tasks {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 注册任务，名称重复时报错。
func (r *Registry) Register(t Task) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("task must have a name")
	}
	if _, exists := r.tasks[t.Name()]; exists {
		return fmt.Errorf("task %s already registered", t.Name())
	}
	r.tasks[t.Name()] = t
	return nil
}

// Get 按名称查找任务。
func (r *Registry) Get(name string) (Task, error) {
	t, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return t, nil
}

// Names 返回排序后的任务名。
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos 返回按名称排序的任务信息。
func (r *Registry) Infos() []Info {
	infos := make([]Info, 0, len(r.tasks))
	for _, name := range r.Names() {
		infos = append(infos, Describe(r.tasks[name]))
	}
	return infos
}
