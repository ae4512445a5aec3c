package certificate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignTemplatesRoundRobin(t *testing.T) {
	assert.Equal(t, []int{0, 1, 0, 1, 0}, AssignTemplates(5, 2))
	assert.Equal(t, []int{0, 0, 0}, AssignTemplates(3, 1))
	assert.Empty(t, AssignTemplates(0, 4))
	assert.Nil(t, AssignTemplates(3, 0))
}

func batchParticipants() []ParticipantContext {
	out := make([]ParticipantContext, 3)
	for i := range out {
		p := summit
		p.ID = int64(100 + i)
		out[i] = p
	}
	return out
}

func TestRenderBatchToleratesPartialFailure(t *testing.T) {
	root := t.TempDir()
	tpls := []TemplateDescriptor{
		{TemplateIndex: 1, ImagePath: writeImage(t, root, "certificates/one.png", 842, 595), Fields: []FieldSpec{{Key: KeyName, X: 421, Y: 300}}},
		{TemplateIndex: 2, ImagePath: writeImage(t, root, "certificates/two.png", 842, 595), Fields: []FieldSpec{{Key: KeyName, X: 421, Y: 300}}},
	}
	require.NoError(t, os.Remove(filepath.Join(root, "certificates", "two.png")))

	rec := &recorder{}
	e := NewEngine(DirAssets{Root: root}, rec.newWriter)
	var progress []int
	result, err := e.RenderBatch(context.Background(), batchParticipants(), tpls, time.Now(), BatchOptions{
		Progress: func(done, total int, _ BatchItem) {
			assert.Equal(t, 3, total)
			progress = append(progress, done)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, []int{1, 2, 3}, progress)

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, int64(101), failures[0].ParticipantID)
	assert.Equal(t, 1, failures[0].Position)
	assert.Equal(t, 2, failures[0].TemplateIndex)
	assert.NotEmpty(t, failures[0].Reason)

	assert.NotEmpty(t, result.Results[0].Document)
	assert.NotEmpty(t, result.Results[2].Document)
	assert.Equal(t, 1, result.Results[2].TemplateIndex)
}

func TestRenderBatchSinkFailureIsRecorded(t *testing.T) {
	root := t.TempDir()
	tpls := []TemplateDescriptor{{TemplateIndex: 1, ImagePath: writeImage(t, root, "certificates/one.png", 842, 595)}}
	e := NewEngine(DirAssets{Root: root}, (&recorder{}).newWriter)

	var sunk []int64
	result, err := e.RenderBatch(context.Background(), batchParticipants(), tpls, time.Now(), BatchOptions{
		Sink: func(item BatchItem, p ParticipantContext, doc []byte) error {
			if p.ID == 102 {
				return errors.New("disk full")
			}
			sunk = append(sunk, p.ID)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101}, sunk)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, "disk full", result.Results[2].Reason)
	assert.Nil(t, result.Results[0].Document)
}

func TestRenderBatchStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	tpls := []TemplateDescriptor{{TemplateIndex: 1, ImagePath: writeImage(t, root, "certificates/one.png", 842, 595)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := NewEngine(DirAssets{Root: root}, (&recorder{}).newWriter).RenderBatch(ctx, batchParticipants(), tpls, time.Now(), BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Total)
}

func TestRenderBatchWithoutTemplates(t *testing.T) {
	_, err := NewEngine(DirAssets{Root: t.TempDir()}, (&recorder{}).newWriter).RenderBatch(context.Background(), batchParticipants(), nil, time.Now(), BatchOptions{})
	assert.ErrorIs(t, err, ErrNoTemplates)
}

func TestBatchResultAdd(t *testing.T) {
	var r BatchResult
	r = r.Add(BatchItem{Position: 0, OK: true})
	r = r.Add(BatchItem{Position: 1, Reason: "missing background"})
	r = r.Add(BatchItem{Position: 2, OK: true})

	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.SuccessCount)
	assert.Equal(t, 1, r.FailureCount)
	require.Len(t, r.Failures(), 1)
	assert.Equal(t, 1, r.Failures()[0].Position)
}
