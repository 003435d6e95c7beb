package task

import (
	"stactask/pkg/item"
	"stactask/pkg/payload"
	"stactask/pkg/process"
)

// Assignment 是单个 Item 的集合分配结果。
type Assignment struct {
	ID            string              `json:"id"`
	Collection    string              `json:"collection,omitempty"`
	UploadOptions process.ConfigLayer `json:"upload_options"`
}

// Plan 是 process 定义针对某个任务的解析结果。
type Plan struct {
	Task        string              `json:"task,omitempty"`
	Parameters  process.ConfigLayer `json:"parameters"`
	Assignments []Assignment        `json:"assignments"`
}

// Plan 计算任务参数以及每个 Item 的集合与上传配置，不执行任务，也不修改输入。
func (r *Runner) Plan(in *payload.Payload, taskName string) (*Plan, error) {
	resolver, err := r.Resolve(in, false)
	if err != nil {
		return nil, err
	}
	items := make([]item.Item, 0, len(in.Features))
	for _, f := range in.Features {
		c, err := f.Clone()
		if err != nil {
			return nil, &InvalidInputError{Msg: "feature " + f.ID, Err: err}
		}
		items = append(items, c)
	}
	if err := resolver.AssignCollections(items); err != nil {
		return nil, err
	}
	plan := &Plan{
		Task:        taskName,
		Parameters:  resolver.ParametersFor(taskName),
		Assignments: make([]Assignment, 0, len(items)),
	}
	for _, it := range items {
		plan.Assignments = append(plan.Assignments, Assignment{
			ID:            it.ID,
			Collection:    it.Collection,
			UploadOptions: resolver.UploadConfigFor(it.Collection),
		})
	}
	return plan, nil
}
