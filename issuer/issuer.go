// Package issuer renders and issues certificates for events: previews, merged documents,
// bulk runs with progress tracking, template administration and download links.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/db/kvdb"
	"github.com/zeptools/certgw/pdfs"
	"github.com/zeptools/certgw/pdfs/impls/gofpdf"
	"github.com/zeptools/certgw/pdfs/impls/raster"
	"github.com/zeptools/certgw/sec"
	"github.com/zeptools/certgw/store"
)

type Conf struct {
	AppName     string
	PublicRoot  string // served files root. template images and certificates live under it
	BaseURL     string // public origin used in download links and QR codes
	Locale      certificate.Locale
	PreviewDPI  float64 // PNG preview resolution. 72 -> 1px per pt
	DownloadKey []byte  // 32 bytes XChaCha20-Poly1305 key
	HistoryLen  int64   // bulk runs kept per event
	ProgressTTL time.Duration
	MaxUpload   int64 // bytes
}

const (
	CertificatesDir = "/certificates"
	TemplatesDir    = "/certificates/templates"
)

type Issuer struct {
	conf   Conf
	store  *store.Store
	kv     kvdb.Client
	public publicDir
	pdf    *certificate.Engine[gofpdf.Template]
	png    *certificate.Engine[image.Image]
	tokens *sec.TokenSealer
	locks  *sync.Map // bulk runs by event, template slots being edited
	root   context.Context
	now    func() time.Time
}

type Option func(*Issuer)

// WithRootContext stops bulk runs when root is cancelled
func WithRootContext(root context.Context) Option {
	return func(i *Issuer) { i.root = root }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithLocks shares action locks with other components
func WithLocks(locks *sync.Map) Option {
	return func(i *Issuer) { i.locks = locks }
}

func New(conf Conf, st *store.Store, kv kvdb.Client, opts ...Option) (*Issuer, error) {
	if conf.Locale == "" {
		conf.Locale = certificate.DefaultLocale
	}
	if conf.PreviewDPI <= 0 {
		conf.PreviewDPI = 72
	}
	if conf.HistoryLen <= 0 {
		conf.HistoryLen = 20
	}
	if conf.ProgressTTL <= 0 {
		conf.ProgressTTL = 24 * time.Hour
	}
	if conf.MaxUpload <= 0 {
		conf.MaxUpload = 10 << 20
	}
	if kv == nil {
		return nil, errors.New("issuer: kv client is required")
	}
	tokens, err := sec.NewTokenSealer(conf.DownloadKey, "certificate-download")
	if err != nil {
		return nil, fmt.Errorf("issuer: download key: %w", err)
	}
	i := &Issuer{
		conf:   conf,
		store:  st,
		kv:     kv,
		public: publicDir{root: conf.PublicRoot},
		tokens: tokens,
		locks:  &sync.Map{},
		root:   context.Background(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	assets := certificate.DirAssets{Root: conf.PublicRoot}
	onFont := certificate.OnFontFallback(func(err *certificate.FontResolutionError) {
		log.Printf("[WARN][ISSUER] %v. falling back to %s", err, certificate.DefaultFont)
	})
	i.pdf = certificate.NewEngine(assets, func() pdfs.Writer[gofpdf.Template] {
		return gofpdf.NewWriter(pdfs.CertificateSize,
			gofpdf.WithMetadata("Certificate", conf.AppName),
			gofpdf.WithCreationDate(i.now()),
		)
	}, certificate.WithLocale(conf.Locale), onFont)
	scale := conf.PreviewDPI / 72
	i.png = certificate.NewEngine(assets, func() pdfs.Writer[image.Image] {
		return raster.NewWriter(pdfs.CertificateSize, scale)
	}, certificate.WithLocale(conf.Locale), onFont)
	return i, nil
}

// participant loads the participant and checks it belongs to the event
func (i *Issuer) participant(ctx context.Context, eventID int64, participantID int64) (certificate.ParticipantContext, error) {
	p, err := i.store.ParticipantContext(ctx, participantID)
	if errors.Is(err, store.ErrNotFound) {
		return p, ErrParticipantNotFound
	}
	if err != nil {
		return p, err
	}
	if p.EventID != eventID {
		return p, ErrParticipantNotFound
	}
	return p, nil
}

func (i *Issuer) template(ctx context.Context, eventID int64, templateIndex int) (certificate.TemplateDescriptor, error) {
	if templateIndex < 1 || templateIndex > certificate.MaxTemplates {
		return certificate.TemplateDescriptor{}, ErrInvalidTemplateIndex
	}
	tpl, err := i.store.Template(ctx, eventID, templateIndex)
	if errors.Is(err, store.ErrNotFound) {
		return tpl, ErrTemplateNotFound
	}
	return tpl, err
}

// Preview renders one template for one participant as a single-page PDF
func (i *Issuer) Preview(ctx context.Context, eventID int64, participantID int64, templateIndex int) ([]byte, error) {
	p, err := i.participant(ctx, eventID, participantID)
	if err != nil {
		return nil, err
	}
	tpl, err := i.template(ctx, eventID, templateIndex)
	if err != nil {
		return nil, err
	}
	return i.pdf.RenderSingle(tpl, p, i.now())
}

// PreviewImage is Preview rendered to PNG
func (i *Issuer) PreviewImage(ctx context.Context, eventID int64, participantID int64, templateIndex int) ([]byte, error) {
	p, err := i.participant(ctx, eventID, participantID)
	if err != nil {
		return nil, err
	}
	tpl, err := i.template(ctx, eventID, templateIndex)
	if err != nil {
		return nil, err
	}
	return i.png.RenderSingle(tpl, p, i.now())
}

// GenerateMerged renders every template of the participant's event into one PDF
func (i *Issuer) GenerateMerged(ctx context.Context, eventID int64, participantID int64) ([]byte, error) {
	p, err := i.participant(ctx, eventID, participantID)
	if err != nil {
		return nil, err
	}
	tpls, err := i.store.Templates(ctx, eventID)
	if err != nil {
		return nil, err
	}
	doc, err := i.pdf.RenderMerged(tpls, p, i.now())
	if errors.Is(err, certificate.ErrNoTemplates) {
		return nil, ErrNoTemplates
	}
	return doc, err
}
