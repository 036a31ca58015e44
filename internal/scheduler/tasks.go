package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAnalysisRun = "analysis.run"

// AnalysisRunPayload identifies an analysis run to execute in the worker.
type AnalysisRunPayload struct {
	RunID     string `json:"runId"`
	DatasetID string `json:"datasetId"`
	Focus     string `json:"focus"`
}

func NewAnalysisRunTask(payload AnalysisRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalysisRun, data), nil
}

func ParseAnalysisRunPayload(task *asynq.Task) (AnalysisRunPayload, error) {
	var payload AnalysisRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AnalysisRunPayload{}, err
	}
	return payload, nil
}
