// Command certgen renders certificates offline from a YAML layout.
//
//	certgen -layout event.yaml -assets ./public -out ./out [-merged] [-png]
//
// Without -merged each participant gets one page, participant i using template i mod M.
// With -merged each participant gets every template as one multi-page PDF.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/pdfs"
	"github.com/zeptools/certgw/pdfs/impls/gofpdf"
	"github.com/zeptools/certgw/pdfs/impls/raster"
	"github.com/zeptools/certgw/rw"
	"gopkg.in/yaml.v3"
)

type Layout struct {
	Locale       certificate.Locale               `yaml:"locale"`
	Templates    []certificate.TemplateDescriptor `yaml:"templates"`
	Participants []certificate.ParticipantContext `yaml:"participants"`
}

func loadLayout(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var l Layout
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(l.Templates) == 0 {
		return nil, certificate.ErrNoTemplates
	}
	if len(l.Templates) > certificate.MaxTemplates {
		return nil, fmt.Errorf("%s: at most %d templates", path, certificate.MaxTemplates)
	}
	if l.Locale == "" {
		l.Locale = certificate.DefaultLocale
	}
	return &l, nil
}

func main() {
	layoutPath := flag.String("layout", "layout.yaml", "YAML file with templates and participants")
	assets := flag.String("assets", ".", "directory template image paths are resolved against")
	outDir := flag.String("out", "out", "output directory")
	merged := flag.Bool("merged", false, "one multi-page document per participant")
	png := flag.Bool("png", false, "PNG instead of PDF (one image per page, stacked when merged)")
	dpi := flag.Float64("dpi", 72, "PNG resolution")
	flag.Parse()

	l, err := loadLayout(*layoutPath)
	if err != nil {
		log.Fatalf("[ERROR][CERTGEN] %v", err)
	}
	if err = os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("[ERROR][CERTGEN] %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src := certificate.DirAssets{Root: *assets}
	opts := []certificate.Option{
		certificate.WithLocale(l.Locale),
		certificate.OnFontFallback(func(e *certificate.FontResolutionError) {
			log.Printf("[WARN][CERTGEN] %v", e)
		}),
	}
	var result certificate.BatchResult
	if *png {
		scale := *dpi / 72
		e := certificate.NewEngine(src, func() pdfs.Writer[image.Image] {
			return raster.NewWriter(pdfs.CertificateSize, scale)
		}, opts...)
		result, err = run(ctx, e, l, *outDir, ".png", *merged)
	} else {
		e := certificate.NewEngine(src, func() pdfs.Writer[gofpdf.Template] {
			return gofpdf.NewWriter(pdfs.CertificateSize, gofpdf.WithMetadata("Certificate", "certgen"))
		}, opts...)
		result, err = run(ctx, e, l, *outDir, ".pdf", *merged)
	}
	for _, item := range result.Failures() {
		log.Printf("[ERROR][CERTGEN] #%d %s (template %d): %s", item.Position, item.Name, item.TemplateIndex, item.Reason)
	}
	log.Printf("[INFO][CERTGEN] %d/%d written to %s", result.SuccessCount, result.Total, *outDir)
	if err != nil {
		log.Fatalf("[ERROR][CERTGEN] %v", err)
	}
	if result.FailureCount > 0 {
		os.Exit(1)
	}
}

func fileName(p certificate.ParticipantContext, position int, ext string) string {
	if p.ID != 0 {
		return fmt.Sprintf("certificate-%d%s", p.ID, ext)
	}
	return fmt.Sprintf("certificate-%03d%s", position+1, ext)
}

func writeDoc(path string, doc []byte) error {
	_, err := rw.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, err := w.Write(doc)
		return err
	})
	return err
}

func run[T any](ctx context.Context, e *certificate.Engine[T], l *Layout, outDir string, ext string, merged bool) (certificate.BatchResult, error) {
	now := time.Now()
	if !merged {
		return e.RenderBatch(ctx, l.Participants, l.Templates, now, certificate.BatchOptions{
			Sink: func(item certificate.BatchItem, p certificate.ParticipantContext, doc []byte) error {
				return writeDoc(filepath.Join(outDir, fileName(p, item.Position, ext)), doc)
			},
		})
	}
	var result certificate.BatchResult
	for i, p := range l.Participants {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item := certificate.BatchItem{Position: i, ParticipantID: p.ID, Name: p.Name, TemplateIndex: -1}
		doc, err := e.RenderMerged(l.Templates, p, now)
		if err == nil {
			err = writeDoc(filepath.Join(outDir, fileName(p, i, ext)), doc)
		}
		if err != nil {
			item.Reason, item.Err = err.Error(), err
		} else {
			item.OK = true
		}
		result = result.Add(item)
	}
	return result, nil
}
