package issuer

import "errors"

var (
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrNoTemplates          = errors.New("no certificate templates found for this event")
	ErrEventNotFound        = errors.New("event not found")
	ErrNothingToGenerate    = errors.New("no participants found without certificates")
	ErrBulkInProgress       = errors.New("bulk generation already running for this event")
	ErrTemplateBusy         = errors.New("template is being changed by another request")
	ErrInvalidTemplatePath  = errors.New("invalid image path. please upload image first")
	ErrInvalidTemplateIndex = errors.New("invalid template index")
	ErrUnsupportedImage     = errors.New("unsupported image. only png and jpeg are accepted")
	ErrCertificateNotFound  = errors.New("certificate not found")
	ErrInvalidDownloadToken = errors.New("invalid download token")
)
