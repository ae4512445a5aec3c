package issuer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/locks/keyonlylocks"
	"github.com/zeptools/certgw/store"
)

const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// IssuedFile is one certificate written by a bulk run
type IssuedFile struct {
	ParticipantID int64  `json:"participantId"`
	Path          string `json:"path"`
	DownloadToken string `json:"downloadToken"`
}

type BulkReport struct {
	JobID string `json:"jobId"`
	certificate.BatchResult
	Files []IssuedFile `json:"files"`
}

// BulkProgress mirrors the progress hash of an event
type BulkProgress struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Done      int    `json:"done"`
	Success   int    `json:"success"`
	Errors    int    `json:"errors"`
	StartedAt string `json:"startedAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func progressKey(eventID int64) string {
	return fmt.Sprintf("certgw:bulk:%d", eventID)
}

func historyKey(eventID int64) string {
	return fmt.Sprintf("certgw:bulk:%d:history", eventID)
}

// certificateFilename follows cert_{name}_{slug}_{uuid}.pdf with whitespace runs as `_`
func certificateFilename(p certificate.ParticipantContext) string {
	name := strings.Join(strings.Fields(p.Name), "_")
	name = strings.NewReplacer("/", "-", `\`, "-").Replace(name)
	return fmt.Sprintf("cert_%s_%s_%s.pdf", name, p.EventSlug, uuid.NewString())
}

// BulkGenerate issues a certificate to every verified participant of the event that has none,
// assigning templates round-robin. One run per event at a time.
func (i *Issuer) BulkGenerate(ctx context.Context, eventID int64) (BulkReport, error) {
	if _, err := i.store.Event(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return BulkReport{}, ErrEventNotFound
		}
		return BulkReport{}, err
	}
	unlock, ok := keyonlylocks.TryLock(i.locks, "bulk:"+strconv.FormatInt(eventID, 10))
	if !ok {
		return BulkReport{}, ErrBulkInProgress
	}
	defer unlock()

	participants, err := i.store.PendingParticipants(ctx, eventID)
	if err != nil {
		return BulkReport{}, err
	}
	if len(participants) == 0 {
		return BulkReport{}, ErrNothingToGenerate
	}
	tpls, err := i.store.Templates(ctx, eventID)
	if err != nil {
		return BulkReport{}, err
	}
	if len(tpls) == 0 {
		return BulkReport{}, ErrNoTemplates
	}
	templateIDs := make(map[int]int64, len(tpls))
	for _, t := range tpls {
		templateIDs[t.TemplateIndex] = t.ID
	}

	if err = i.root.Err(); err != nil {
		return BulkReport{}, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(i.root, cancel)
	defer stop()

	report := BulkReport{JobID: uuid.NewString()}
	startedAt := i.now().UTC().Format(time.RFC3339)
	// a new run starts from an empty hash without the previous run's ttl
	if _, err := i.kv.Delete(ctx, progressKey(eventID)); err != nil {
		log.Printf("[WARN][ISSUER] bulk progress of event %d not reset: %v", eventID, err)
	}
	i.saveProgress(ctx, eventID, map[string]any{
		"job_id": report.JobID, "status": StatusRunning, "total": len(participants),
		"done": 0, "success": 0, "errors": 0, "started_at": startedAt, "updated_at": startedAt,
	})
	log.Printf("[INFO][ISSUER] bulk %s started for event %d: %d participants, %d templates",
		report.JobID, eventID, len(participants), len(tpls))

	sink := func(item certificate.BatchItem, p certificate.ParticipantContext, doc []byte) error {
		file, err := i.issue(ctx, p, templateIDs[item.TemplateIndex], doc)
		if err != nil {
			return err
		}
		report.Files = append(report.Files, file)
		return nil
	}
	success, failed := 0, 0
	progress := func(done int, total int, item certificate.BatchItem) {
		if item.OK {
			success++
		} else {
			failed++
			log.Printf("[WARN][ISSUER] bulk %s: participant %d (%s): %s", report.JobID, item.ParticipantID, item.Name, item.Reason)
		}
		i.saveProgress(ctx, eventID, map[string]any{
			"done": done, "success": success, "errors": failed, "updated_at": i.now().UTC().Format(time.RFC3339),
		})
	}

	result, runErr := i.pdf.RenderBatch(ctx, participants, tpls, i.now(), certificate.BatchOptions{Sink: sink, Progress: progress})
	report.BatchResult = result

	status := StatusDone
	if runErr != nil {
		status = StatusCancelled
	}
	// the run context may be cancelled already
	finishCtx := context.WithoutCancel(ctx)
	i.saveProgress(finishCtx, eventID, map[string]any{"status": status, "updated_at": i.now().UTC().Format(time.RFC3339)})
	i.expireProgress(finishCtx, eventID)
	i.pushHistory(finishCtx, eventID, report, status)
	log.Printf("[INFO][ISSUER] bulk %s %s: %d/%d succeeded", report.JobID, status, result.SuccessCount, len(participants))
	if runErr != nil {
		return report, runErr
	}
	return report, nil
}

// issue writes the document under the certificates dir and records it
func (i *Issuer) issue(ctx context.Context, p certificate.ParticipantContext, templateID int64, doc []byte) (IssuedFile, error) {
	rel := CertificatesDir + "/" + certificateFilename(p)
	if err := i.public.write(rel, doc); err != nil {
		return IssuedFile{}, fmt.Errorf("write %s: %w", rel, err)
	}
	if _, err := i.store.InsertCertificate(ctx, p.ID, templateID, rel, i.now()); err != nil {
		if rmErr := i.public.remove(rel); rmErr != nil {
			log.Printf("[WARN][ISSUER] cannot remove orphan %s: %v", rel, rmErr)
		}
		return IssuedFile{}, fmt.Errorf("record certificate: %w", err)
	}
	token, err := i.DownloadToken(rel)
	if err != nil {
		return IssuedFile{}, err
	}
	return IssuedFile{ParticipantID: p.ID, Path: rel, DownloadToken: token}, nil
}

func (i *Issuer) saveProgress(ctx context.Context, eventID int64, fields map[string]any) {
	if err := i.kv.SetFields(ctx, progressKey(eventID), fields); err != nil {
		log.Printf("[WARN][ISSUER] bulk progress of event %d not saved: %v", eventID, err)
	}
}

func (i *Issuer) expireProgress(ctx context.Context, eventID int64) {
	if _, err := i.kv.Expire(ctx, progressKey(eventID), i.conf.ProgressTTL); err != nil {
		log.Printf("[WARN][ISSUER] bulk progress of event %d has no ttl: %v", eventID, err)
	}
}

type historyEntry struct {
	JobID    string `json:"jobId"`
	Status   string `json:"status"`
	Total    int    `json:"total"`
	Success  int    `json:"success"`
	Errors   int    `json:"errors"`
	Finished string `json:"finishedAt"`
}

func (i *Issuer) pushHistory(ctx context.Context, eventID int64, report BulkReport, status string) {
	entry, err := json.Marshal(historyEntry{
		JobID:    report.JobID,
		Status:   status,
		Total:    report.Total,
		Success:  report.SuccessCount,
		Errors:   report.FailureCount,
		Finished: i.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("[WARN][ISSUER] bulk history entry: %v", err)
		return
	}
	if err = i.kv.PushCapped(ctx, historyKey(eventID), string(entry), i.conf.HistoryLen); err != nil {
		log.Printf("[WARN][ISSUER] bulk history of event %d not saved: %v", eventID, err)
	}
}

// Progress reads the latest bulk run of the event. Status is idle when there was none.
func (i *Issuer) Progress(ctx context.Context, eventID int64) (BulkProgress, error) {
	fields, err := i.kv.GetAllFields(ctx, progressKey(eventID))
	if err != nil {
		return BulkProgress{}, err
	}
	if len(fields) == 0 {
		return BulkProgress{Status: StatusIdle}, nil
	}
	atoi := func(k string) int {
		n, _ := strconv.Atoi(fields[k])
		return n
	}
	return BulkProgress{
		JobID:     fields["job_id"],
		Status:    fields["status"],
		Total:     atoi("total"),
		Done:      atoi("done"),
		Success:   atoi("success"),
		Errors:    atoi("errors"),
		StartedAt: fields["started_at"],
		UpdatedAt: fields["updated_at"],
	}, nil
}

// History lists past bulk runs of the event, oldest first, as stored JSON entries
func (i *Issuer) History(ctx context.Context, eventID int64) ([]string, error) {
	return i.kv.Range(ctx, historyKey(eventID), 0, -1)
}
