package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chal0326/researchcms/internal/bucket"
	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/queue"
)

func newTestOrchestrator(keys ...string) (*Orchestrator, *MockProcessor) {
	docs := bucket.NewMemory()
	for _, k := range keys {
		docs.Put(k, "body")
	}
	p := &MockProcessor{}
	o := New(bucket.Registry{"RESEARCH_DOCS": docs}, p, nil)
	o.now = func() time.Time { return time.Unix(3600*10, 0) }
	return o, p
}

func twelveKeys() []string {
	var keys []string
	for i := 0; i < 12; i++ {
		keys = append(keys, fmt.Sprintf("uploads/doc-%02d.md", i))
	}
	return keys
}

func TestSweepPaging(t *testing.T) {
	o, p := newTestOrchestrator(twelveKeys()...)
	ctx := context.Background()

	var sizes []int
	req := SweepRequest{Limit: 5}
	for {
		resp, err := o.Sweep(ctx, req)
		require.NoError(t, err)
		sizes = append(sizes, resp.Stats.Files)
		if resp.NextCursor == nil {
			break
		}
		req.Cursor = *resp.NextCursor
	}

	assert.Equal(t, []int{5, 5, 2}, sizes)
	assert.Len(t, p.Keys, 12)
}

func TestSweepDefaultsAndFiltering(t *testing.T) {
	o, p := newTestOrchestrator(
		"uploads/a.md",
		"uploads/b.pdf",
		"uploads/broken.txt",
		"other/c.md",
	)

	resp, err := o.Sweep(context.Background(), SweepRequest{})
	require.NoError(t, err)

	assert.Nil(t, resp.NextCursor)
	assert.Equal(t, 1, resp.Stats.Files)
	assert.Equal(t, 2, resp.Stats.Chunks)
	assert.Equal(t, 1, resp.Stats.FilesFailed)
	assert.Equal(t, []string{"uploads/a.md", "uploads/broken.txt"}, p.Keys)
}

func TestSweepUnknownBucket(t *testing.T) {
	o, _ := newTestOrchestrator()
	_, err := o.Sweep(context.Background(), SweepRequest{Bucket: "NOPE"})
	assert.ErrorIs(t, err, bucket.ErrUnknownBucket)
}

func TestSweepAll(t *testing.T) {
	o, _ := newTestOrchestrator(twelveKeys()...)
	batches := 0
	total, err := o.SweepAll(context.Background(), SweepRequest{Limit: 5}, func(SweepResponse) { batches++ })
	require.NoError(t, err)
	assert.Equal(t, 3, batches)
	assert.Equal(t, 12, total.Files)
}

func TestEnqueue(t *testing.T) {
	o, _ := newTestOrchestrator("uploads/a.md", "uploads/b.txt", "uploads/c.png")

	_, err := o.Enqueue(context.Background(), "", "")
	assert.ErrorIs(t, err, queue.ErrNotConfigured)

	q := &MockQueue{}
	o.Queue = q
	n, err := o.Enqueue(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []model.DocumentRef{
		{Bucket: "RESEARCH_DOCS", Key: "uploads/a.md"},
		{Bucket: "RESEARCH_DOCS", Key: "uploads/b.txt"},
	}, q.Sent)

	q.SendErr = errUnavailable
	_, err = o.Enqueue(context.Background(), "", "")
	assert.ErrorIs(t, err, errUnavailable)

	_, err = o.Enqueue(context.Background(), "NOPE", "")
	assert.ErrorIs(t, err, bucket.ErrUnknownBucket)
}

func TestDispatch(t *testing.T) {
	o, _ := newTestOrchestrator("uploads/a.md", "uploads/b.md")

	_, err := o.Dispatch(context.Background(), "", "")
	require.NoError(t, err)

	h := &MockHost{}
	o.Host = h
	stats, err := o.Dispatch(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Started: 2}, stats)
	assert.Equal(t, []string{"extract-uploads-a-md-36000", "extract-uploads-b-md-36000"}, h.IDs)

	stats, err = o.Dispatch(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Duplicates: 2}, stats)

	h.Err = errUnavailable
	stats, err = o.Dispatch(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Failed: 2}, stats)
}

func TestConsumerAcks(t *testing.T) {
	o, _ := newTestOrchestrator()
	h := &MockHost{}
	q := &MockQueue{Sent: []model.DocumentRef{
		{Bucket: "RESEARCH_DOCS", Key: "uploads/a.md"},
		{Bucket: "RESEARCH_DOCS", Key: "uploads/a.md"},
	}}
	o.Host = h
	o.Queue = q

	require.NoError(t, NewConsumer(o).Run(context.Background()))
	assert.Equal(t, []string{"uploads/a.md", "uploads/a.md"}, q.Acked)
	assert.Len(t, h.IDs, 1)

	h.Err = errUnavailable
	q.Acked = nil
	require.NoError(t, NewConsumer(o).Run(context.Background()))
	assert.Empty(t, q.Acked)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	o, _ := newTestOrchestrator()
	s := NewScheduler(o, "RESEARCH_DOCS", "uploads/")
	assert.Error(t, s.Start(context.Background(), "not a schedule"))
}

func TestSchedulerPoll(t *testing.T) {
	o, _ := newTestOrchestrator("uploads/a.md")
	h := &MockHost{}
	o.Host = h

	s := NewScheduler(o, "RESEARCH_DOCS", "uploads/")
	require.NoError(t, s.Start(context.Background(), "@every 1h"))
	s.poll(context.Background())
	s.Stop()
	assert.Len(t, h.IDs, 1)
}
