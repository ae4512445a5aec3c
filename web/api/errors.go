package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/issuer"
	"github.com/zeptools/certgw/requests"
	"github.com/zeptools/certgw/responses"
)

var (
	errBadEventID       = errors.New("invalid event id")
	errBadBody          = errors.New("invalid request body")
	errParticipantIDReq = errors.New("participantId is required")
	errTemplateIndexReq = errors.New("templateIndex is required")
	errNoFile           = errors.New("no file uploaded")
)

// application-level codes carried in responses.Message
const (
	CodeFieldsFormat = 4001
	CodeAsset        = 4002
	CodeFont         = 4003
)

func badRequest(err error) bool {
	for _, target := range []error{
		errBadEventID, errBadBody, errParticipantIDReq, errTemplateIndexReq, errNoFile,
		issuer.ErrInvalidTemplatePath, issuer.ErrInvalidTemplateIndex, issuer.ErrUnsupportedImage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func notFound(err error) bool {
	for _, target := range []error{
		issuer.ErrParticipantNotFound, issuer.ErrTemplateNotFound, issuer.ErrNoTemplates,
		issuer.ErrEventNotFound, issuer.ErrNothingToGenerate, issuer.ErrCertificateNotFound,
		issuer.ErrInvalidDownloadToken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps err to a status code and a responses.Message
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fieldErr *certificate.TemplateFieldFormatError
		assetErr *certificate.TemplateAssetError
		fontErr  *certificate.FontResolutionError
	)
	switch {
	case errors.As(err, &fieldErr):
		responses.ErrorCode(w, http.StatusBadRequest, CodeFieldsFormat, "Invalid template fields format: "+fieldErr.Error())
	case errors.As(err, &assetErr) && errors.Is(err, certificate.ErrAssetNotFound):
		responses.ErrorCode(w, http.StatusNotFound, CodeAsset, "Template image file not found on server")
	case errors.As(err, &assetErr):
		responses.ErrorCode(w, http.StatusBadRequest, CodeAsset, "Template must be PNG or JPG/JPEG: "+assetErr.Error())
	case errors.As(err, &fontErr):
		responses.ErrorCode(w, http.StatusBadRequest, CodeFont, "Font not supported: "+fontErr.Error())
	case errors.Is(err, requests.ErrBodyTooLarge):
		responses.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	case badRequest(err):
		responses.Error(w, http.StatusBadRequest, err.Error())
	case notFound(err):
		responses.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, issuer.ErrBulkInProgress), errors.Is(err, issuer.ErrTemplateBusy):
		responses.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled):
		responses.Error(w, http.StatusServiceUnavailable, "shutting down")
	default:
		log.Printf("[ERROR][HTTP] %s %s: %v", r.Method, r.URL.Path, err)
		responses.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
