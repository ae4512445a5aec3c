package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zeptools/certgw/requests"
	"github.com/zeptools/certgw/responses"
)

type renderRequest struct {
	ParticipantID int64 `json:"participantId"`
	TemplateIndex int   `json:"templateIndex"`
}

type bulkStats struct {
	Total        int      `json:"total"`
	Success      int      `json:"success"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"errorDetails"`
}

type bulkResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	JobID   string    `json:"jobId"`
	Stats   bulkStats `json:"stats"`
	Files   any       `json:"files"`
}

func (a *API) decodeRender(w http.ResponseWriter, r *http.Request, needIndex bool) (int64, renderRequest, error) {
	id, err := eventID(r)
	if err != nil {
		return 0, renderRequest{}, err
	}
	var body renderRequest
	if err = requests.DecodeJSONBody(w, r, &body, a.maxBody()); err != nil {
		return 0, body, fmt.Errorf("%w: %w", errBadBody, err)
	}
	if body.ParticipantID <= 0 {
		return 0, body, errParticipantIDReq
	}
	if needIndex && body.TemplateIndex == 0 {
		return 0, body, errTemplateIndexReq
	}
	return id, body, nil
}

func (a *API) preview(w http.ResponseWriter, r *http.Request) {
	id, body, err := a.decodeRender(w, r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := a.Issuer.Preview(r.Context(), id, body.ParticipantID, body.TemplateIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses.WritePDFBytesWithFilename(w, fmt.Sprintf("preview-certificate-%d-%d.pdf", body.ParticipantID, body.TemplateIndex), doc)
}

func (a *API) previewPNG(w http.ResponseWriter, r *http.Request) {
	id, body, err := a.decodeRender(w, r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	img, err := a.Issuer.PreviewImage(r.Context(), id, body.ParticipantID, body.TemplateIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses.WritePNGBytes(w, fmt.Sprintf("preview-certificate-%d-%d.png", body.ParticipantID, body.TemplateIndex), img)
}

func (a *API) generate(w http.ResponseWriter, r *http.Request) {
	id, body, err := a.decodeRender(w, r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := a.Issuer.GenerateMerged(r.Context(), id, body.ParticipantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses.WritePDFAttachment(w, fmt.Sprintf("certificates-multi-%d.pdf", body.ParticipantID), doc)
}

// bulkGenerate keeps running when the client goes away. Shutdown still stops it.
func (a *API) bulkGenerate(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := a.Issuer.BulkGenerate(context.WithoutCancel(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	failures := report.Failures()
	details := make([]string, 0, len(failures))
	for _, item := range failures {
		details = append(details, fmt.Sprintf("Failed to generate certificate for %s: %s", item.Name, item.Reason))
	}
	responses.JSON(w, http.StatusOK, bulkResponse{
		Success: true,
		Message: "Bulk certificate generation completed",
		JobID:   report.JobID,
		Stats: bulkStats{
			Total:        report.Total,
			Success:      report.SuccessCount,
			Errors:       report.FailureCount,
			ErrorDetails: details,
		},
		Files: report.Files,
	})
}

func (a *API) bulkProgress(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	progress, err := a.Issuer.Progress(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses.JSON(w, http.StatusOK, progress)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := a.Issuer.Stats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses.JSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}
