package temporalx

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/retry"
	wf "github.com/chal0326/researchcms/internal/workflow"
)

const (
	WorkflowName = "ExtractDocument"
	ActivityName = "ProcessDocument"

	errExtractionFailed = "ExtractionFailed"
)

// Input is the argument of ExtractDocument.
type Input struct {
	Ref    model.DocumentRef `json:"ref"`
	Policy retry.Policy      `json:"policy"`
}

// RetryPolicy converts p into the activity retry policy.
func RetryPolicy(p retry.Policy) *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    p.InitialDelay,
		BackoffCoefficient: p.BackoffMultiplier,
		MaximumAttempts:    int32(p.MaxAttempts),
	}
}

// ExtractDocument runs the extraction activity once per attempt. When every
// attempt fails it ends with a non-retryable error naming the key.
func ExtractDocument(ctx workflow.Context, in Input) (model.FileResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		RetryPolicy:         RetryPolicy(in.Policy),
	})

	var out model.FileResult
	if err := workflow.ExecuteActivity(ctx, ActivityName, in.Ref).Get(ctx, &out); err != nil {
		return out, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("extraction failed for %s: %v", in.Ref.Key, err),
			errExtractionFailed,
			err,
			in.Ref.Key,
		)
	}
	return out, nil
}

type Activities struct {
	Processor wf.Processor
}

// ProcessDocument fails when the file failed so the retry policy applies.
func (a *Activities) ProcessDocument(ctx context.Context, ref model.DocumentRef) (model.FileResult, error) {
	res := a.Processor.ProcessFile(ctx, ref.Bucket, ref.Key)
	if !res.Success {
		return res, fmt.Errorf("process %s: %s", ref.Key, res.Error)
	}
	return res, nil
}
