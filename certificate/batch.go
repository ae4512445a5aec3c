package certificate

import (
	"context"
	"time"
)

// AssignTemplates returns the template position for each of n participants: i mod m
func AssignTemplates(n int, m int) []int {
	if m <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i % m
	}
	return out
}

// BatchItem is the outcome for one participant of a batch
type BatchItem struct {
	Position      int    `json:"position"`
	ParticipantID int64  `json:"participantId"`
	Name          string `json:"name"`
	TemplateIndex int    `json:"templateIndex"`
	OK            bool   `json:"ok"`
	Reason        string `json:"reason,omitempty"`
	// Document is kept only when the batch runs without a sink
	Document []byte `json:"-"`
	Err      error  `json:"-"`
}

type BatchResult struct {
	Results      []BatchItem `json:"results"`
	Total        int         `json:"total"`
	SuccessCount int         `json:"successCount"`
	FailureCount int         `json:"failureCount"`
}

// Failures returns the failed items in list order
func (r BatchResult) Failures() []BatchItem {
	var failed []BatchItem
	for _, item := range r.Results {
		if !item.OK {
			failed = append(failed, item)
		}
	}
	return failed
}

// Add folds one finished item into the result
func (r BatchResult) Add(item BatchItem) BatchResult {
	r.Results = append(r.Results, item)
	r.Total++
	if item.OK {
		r.SuccessCount++
	} else {
		r.FailureCount++
	}
	return r
}

// Sink receives each rendered document. Returning an error marks that participant as failed.
type Sink func(item BatchItem, p ParticipantContext, doc []byte) error

// Progress is told about every finished participant
type Progress func(done int, total int, item BatchItem)

type BatchOptions struct {
	Sink     Sink
	Progress Progress
}

// RenderBatch renders one single-page document per participant, participant i using
// template i mod len(tpls) (templates ordered by index). Participants are processed
// one by one in list order. A failing participant is recorded and the batch goes on.
// A cancelled context stops the batch; the result so far is returned with ctx.Err().
func (e *Engine[T]) RenderBatch(ctx context.Context, participants []ParticipantContext, tpls []TemplateDescriptor, now time.Time, opts BatchOptions) (BatchResult, error) {
	if len(tpls) == 0 {
		return BatchResult{}, ErrNoTemplates
	}
	ordered := SortTemplates(tpls)
	assigned := AssignTemplates(len(participants), len(ordered))

	result := BatchResult{Results: make([]BatchItem, 0, len(participants))}
	for i, p := range participants {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result = result.Add(e.renderOne(i, p, ordered[assigned[i]], now, opts.Sink))
		if opts.Progress != nil {
			opts.Progress(i+1, len(participants), result.Results[i])
		}
	}
	return result, nil
}

func (e *Engine[T]) renderOne(i int, p ParticipantContext, tpl TemplateDescriptor, now time.Time, sink Sink) BatchItem {
	item := BatchItem{Position: i, ParticipantID: p.ID, Name: p.Name, TemplateIndex: tpl.TemplateIndex}
	doc, err := e.RenderSingle(tpl, p, now)
	if err == nil && sink != nil {
		err = sink(item, p, doc)
		doc = nil
	}
	if err != nil {
		item.Err = err
		item.Reason = err.Error()
		return item
	}
	item.OK = true
	item.Document = doc
	return item
}
