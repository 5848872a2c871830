// Package workflow starts one durable extraction step per document.
package workflow

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/chal0326/researchcms/internal/core/model"
)

// ErrDuplicate is returned when a workflow with the same id was already
// started inside the dedup window.
var ErrDuplicate = errors.New("workflow already started")

// Processor runs one document end to end.
type Processor interface {
	ProcessFile(ctx context.Context, bucketName, key string) model.FileResult
}

// Host starts the extraction step for one document and returns its run id.
type Host interface {
	Start(ctx context.Context, id string, ref model.DocumentRef) (string, error)
}

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9]`)

// ID derives the workflow id for key. Calls within the same window of
// wall-clock time produce the same id.
func ID(key string, window time.Duration, now time.Time) string {
	secs := int64(window / time.Second)
	if secs <= 0 {
		secs = 1
	}
	unix := now.Unix()
	start := unix - unix%secs
	return "extract-" + unsafeID.ReplaceAllString(key, "-") + "-" + strconv.FormatInt(start, 10)
}
