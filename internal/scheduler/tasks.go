package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRefinePolicy = "claims.policy.refine"

type RefinePolicyPayload struct {
	CompanyID    string `json:"companyId"`
	IssueContext string `json:"issueContext"`
	Correction   string `json:"correction"`
}

func NewRefinePolicyTask(payload RefinePolicyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefinePolicy, data), nil
}

func ParseRefinePolicyPayload(task *asynq.Task) (RefinePolicyPayload, error) {
	var payload RefinePolicyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RefinePolicyPayload{}, err
	}
	return payload, nil
}
