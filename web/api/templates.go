package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/issuer"
	"github.com/zeptools/certgw/requests"
	"github.com/zeptools/certgw/responses"
	"github.com/zeptools/certgw/store"
)

type templateInput struct {
	TemplateIndex int            `json:"template_index"`
	Image         string         `json:"image"`
	Elements      jsontext.Value `json:"elements"`
}

type saveTemplatesRequest struct {
	Templates []templateInput `json:"templates"`
}

type deleteTemplateRequest struct {
	TemplateIndex int `json:"templateIndex"`
}

type uploadResponse struct {
	responses.Message
	Path string `json:"path"`
}

func (a *API) listTemplates(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views, err := a.Issuer.ListTemplates(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if views == nil {
		views = []issuer.TemplateView{}
	}
	responses.JSON(w, http.StatusOK, map[string]any{"templates": views})
}

func (a *API) saveTemplates(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body saveTemplatesRequest
	if err = requests.DecodeJSONBody(w, r, &body, a.maxBody()); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadBody, err))
		return
	}
	if body.Templates == nil {
		writeError(w, r, fmt.Errorf("%w: templates must be an array", errBadBody))
		return
	}
	inputs := make([]store.TemplateInput, 0, len(body.Templates))
	for _, t := range body.Templates {
		fields, err := certificate.DecodeFields(t.Elements)
		if err != nil {
			var ffe *certificate.TemplateFieldFormatError
			if errors.As(err, &ffe) {
				ffe.TemplateIndex = t.TemplateIndex
			}
			writeError(w, r, err)
			return
		}
		inputs = append(inputs, store.TemplateInput{TemplateIndex: t.TemplateIndex, ImagePath: t.Image, Fields: fields})
	}
	if err = a.Issuer.SaveTemplates(r.Context(), id, inputs); err != nil {
		writeError(w, r, err)
		return
	}
	responses.Success(w, "Templates saved")
}

func (a *API) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body deleteTemplateRequest
	if err = requests.DecodeJSONBody(w, r, &body, a.maxBody()); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadBody, err))
		return
	}
	if err = a.Issuer.DeleteTemplate(r.Context(), id, body.TemplateIndex); err != nil {
		writeError(w, r, err)
		return
	}
	responses.Success(w, "Template deleted")
}

// uploadTemplateImage takes a multipart form with `templateImage` and `templateIndex`
func (a *API) uploadTemplateImage(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// multipart overhead on top of the image itself
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload()+1<<20)
	if err = r.ParseMultipartForm(4 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, requests.ErrBodyTooLarge)
			return
		}
		writeError(w, r, fmt.Errorf("%w: %w", errBadBody, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("templateImage")
	if err != nil {
		writeError(w, r, errNoFile)
		return
	}
	defer func() { _ = file.Close() }()
	rawIndex := r.FormValue("templateIndex")
	if rawIndex == "" {
		writeError(w, r, errTemplateIndexReq)
		return
	}
	idx, err := strconv.Atoi(rawIndex)
	if err != nil {
		writeError(w, r, issuer.ErrInvalidTemplateIndex)
		return
	}
	rel, err := a.Issuer.UploadTemplateImage(r.Context(), id, idx, header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses.JSON(w, http.StatusOK, uploadResponse{
		Message: responses.Message{Type: responses.TypeSuccess, Message: "Image uploaded"},
		Path:    rel,
	})
}
