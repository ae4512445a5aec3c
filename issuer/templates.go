package issuer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/locks/keyonlylocks"
	"github.com/zeptools/certgw/store"
)

// TemplateView is a stored template with the pixel size of its image
type TemplateView struct {
	TemplateIndex int                     `json:"templateIndex"`
	TemplateURL   string                  `json:"templateUrl"`
	Fields        []certificate.FieldSpec `json:"fields"`
	TemplateSize  certificate.ImageSize   `json:"templateSize"`
	FieldsError   string                  `json:"fieldsError,omitempty"`
}

func (i *Issuer) event(ctx context.Context, eventID int64) error {
	_, err := i.store.Event(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}

func (i *Issuer) ListTemplates(ctx context.Context, eventID int64) ([]TemplateView, error) {
	tpls, err := i.store.Templates(ctx, eventID)
	if err != nil {
		return nil, err
	}
	assets := certificate.DirAssets{Root: i.conf.PublicRoot}
	views := make([]TemplateView, 0, len(tpls))
	for _, t := range tpls {
		v := TemplateView{
			TemplateIndex: t.TemplateIndex,
			TemplateURL:   t.ImagePath,
			Fields:        t.Fields,
			TemplateSize:  certificate.ImageSize{Width: int(certificate.DesignCanvas.Width), Height: int(certificate.DesignCanvas.Height)},
		}
		if v.Fields == nil {
			v.Fields = []certificate.FieldSpec{}
		}
		if t.FieldsErr != nil {
			v.FieldsError = t.FieldsErr.Error()
		}
		if t.ImagePath != "" {
			v.TemplateSize = certificate.ReadImageSize(assets, t.ImagePath)
		}
		views = append(views, v)
	}
	return views, nil
}

// lockSlots holds the template slots of the event for one admin change. Duplicates are fine
func (i *Issuer) lockSlots(eventID int64, indexes ...int) (unlock func(), err error) {
	indexes = slices.Compact(slices.Sorted(slices.Values(indexes)))
	keys := make([]string, len(indexes))
	for n, idx := range indexes {
		keys[n] = fmt.Sprintf("slot:%d:%d", eventID, idx)
	}
	held, ok := keyonlylocks.AcquireLocks(i.locks, keys)
	if !ok {
		return nil, ErrTemplateBusy
	}
	return func() { keyonlylocks.ReleaseLocks(i.locks, held) }, nil
}

func checkTemplatePath(p string) error {
	if !strings.HasPrefix(p, CertificatesDir+"/") || path.Clean(p) != p {
		return ErrInvalidTemplatePath
	}
	return nil
}

// SaveTemplates writes the designer's slots. Every image must already be uploaded.
func (i *Issuer) SaveTemplates(ctx context.Context, eventID int64, inputs []store.TemplateInput) error {
	if err := i.event(ctx, eventID); err != nil {
		return err
	}
	indexes := make([]int, 0, len(inputs))
	for _, in := range inputs {
		if in.TemplateIndex < 1 || in.TemplateIndex > certificate.MaxTemplates {
			return ErrInvalidTemplateIndex
		}
		if err := checkTemplatePath(in.ImagePath); err != nil {
			return err
		}
		indexes = append(indexes, in.TemplateIndex)
	}
	unlock, err := i.lockSlots(eventID, indexes...)
	if err != nil {
		return err
	}
	defer unlock()
	return i.store.UpsertTemplates(ctx, eventID, inputs)
}

// DeleteTemplate removes the template image, then the slot
func (i *Issuer) DeleteTemplate(ctx context.Context, eventID int64, templateIndex int) error {
	unlock, err := i.lockSlots(eventID, templateIndex)
	if err != nil {
		return err
	}
	defer unlock()
	tpl, err := i.template(ctx, eventID, templateIndex)
	if err != nil {
		return err
	}
	if tpl.ImagePath != "" {
		if err = i.public.remove(tpl.ImagePath); err != nil {
			log.Printf("[WARN][ISSUER] cannot remove template image %s: %v", tpl.ImagePath, err)
		}
	}
	deleted, err := i.store.DeleteTemplate(ctx, eventID, templateIndex)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTemplateNotFound
	}
	return nil
}

// UploadTemplateImage stores a PNG or JPEG for the slot and points the slot at it.
// It returns the stored path. A replaced image is removed.
func (i *Issuer) UploadTemplateImage(ctx context.Context, eventID int64, templateIndex int, filename string, r io.Reader) (string, error) {
	if templateIndex < 1 || templateIndex > certificate.MaxTemplates {
		return "", ErrInvalidTemplateIndex
	}
	if _, err := certificate.CheckImageFormat(filename); err != nil {
		return "", ErrUnsupportedImage
	}
	if err := i.event(ctx, eventID); err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(r, i.conf.MaxUpload+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > i.conf.MaxUpload {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrUnsupportedImage, i.conf.MaxUpload)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err != nil || (format != "png" && format != "jpeg") {
		return "", ErrUnsupportedImage
	}
	unlock, err := i.lockSlots(eventID, templateIndex)
	if err != nil {
		return "", err
	}
	defer unlock()

	ext := strings.ToLower(path.Ext(filename))
	rel := fmt.Sprintf("%s/multi-template-event-%d-idx-%d-%s%s", TemplatesDir, eventID, templateIndex, uuid.NewString(), ext)
	if err = i.public.write(rel, data); err != nil {
		return "", err
	}
	old, err := i.store.SetTemplateImage(ctx, eventID, templateIndex, rel)
	if err != nil {
		_ = i.public.remove(rel)
		return "", err
	}
	if old != "" && old != rel && strings.HasPrefix(old, CertificatesDir+"/") {
		if err = i.public.remove(old); err != nil {
			log.Printf("[WARN][ISSUER] cannot remove replaced template image %s: %v", old, err)
		}
	}
	log.Printf("[INFO][ISSUER] event %d template %d image set to %s", eventID, templateIndex, rel)
	return rel, nil
}
