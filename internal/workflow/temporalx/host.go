package temporalx

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/retry"
	wf "github.com/chal0326/researchcms/internal/workflow"
)

// Host starts ExtractDocument executions. Temporal rejects an id that was
// already used, which makes the time-bucketed id the dedup window.
type Host struct {
	Client    temporalsdkclient.Client
	TaskQueue string
	Policy    retry.Policy
}

func NewHost(c temporalsdkclient.Client, taskQueue string, policy retry.Policy) *Host {
	return &Host{Client: c, TaskQueue: taskQueue, Policy: policy}
}

func (h *Host) Start(ctx context.Context, id string, ref model.DocumentRef) (string, error) {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                                       id,
		TaskQueue:                                h.TaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}

	run, err := h.Client.ExecuteWorkflow(ctx, opts, WorkflowName, Input{Ref: ref, Policy: h.Policy})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return "", wf.ErrDuplicate
		}
		return "", fmt.Errorf("start workflow %s: %w", id, err)
	}
	return run.GetRunID(), nil
}
