// Package api exposes the issuer over HTTP: template administration and rendering under
// /api/events/{eventID}/certificates/multi-template/ plus public certificate downloads.
package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zeptools/certgw/constraints"
	"github.com/zeptools/certgw/issuer"
	"github.com/zeptools/certgw/routing"
)

const (
	AdminPrefix    = "/api/events/{eventID}/certificates/multi-template/"
	DownloadPrefix = "/certificates/download/"

	defaultMaxBody = 1 << 20
)

type API struct {
	Issuer *issuer.Issuer
	// Admin guards every admin route. nil -> open
	Admin routing.HandlerWrapper
	// RenderLimit guards the rendering routes. nil -> unlimited
	RenderLimit routing.HandlerWrapper
	// DownloadLimit guards the public download routes. nil -> unlimited
	DownloadLimit routing.HandlerWrapper
	// MaxBody limits JSON bodies. 0 -> 1MiB
	MaxBody int64
	// MaxUpload limits multipart uploads. 0 -> 10MiB
	MaxUpload int64
	// PublicRoot serves template images under /certificates/templates/. empty -> not served
	PublicRoot string
	// Ready reports backend health on /healthz. nil -> always ready
	Ready func(ctx context.Context) error
}

func wrappers(ws ...routing.HandlerWrapper) []routing.HandlerWrapper {
	out := make([]routing.HandlerWrapper, 0, len(ws))
	for _, w := range ws {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

// Register mounts every route on router
func (a *API) Register(router *routing.BaseRouter) {
	router.HandleFunc("GET /healthz", a.healthz)

	if a.PublicRoot != "" {
		dir := filepath.Join(a.PublicRoot, filepath.FromSlash(issuer.TemplatesDir))
		router.Handle("GET "+issuer.TemplatesDir+"/", http.StripPrefix(issuer.TemplatesDir+"/", http.FileServerFS(os.DirFS(dir))))
	}

	router.Group(DownloadPrefix, func(g *routing.RouteGroup) {
		g.HandleFunc("GET {token}", a.download)
		g.HandleFunc("GET {token}/qr.png", a.downloadQR)
	}, wrappers(a.DownloadLimit)...)

	router.Group(AdminPrefix, func(g *routing.RouteGroup) {
		g.HandleFunc("GET templates", a.listTemplates)
		g.HandleFunc("POST templates", a.saveTemplates)
		g.HandleFunc("DELETE templates", a.deleteTemplate)
		g.HandleFunc("POST upload", a.uploadTemplateImage)
		g.HandleFunc("GET stats", a.stats)
		g.HandleFunc("GET bulk-generate/progress", a.bulkProgress)
		g.HandleFunc("POST bulk-generate", a.bulkGenerate)

		g.Group("", func(render *routing.RouteGroup) {
			render.HandleFunc("POST preview", a.preview)
			render.HandleFunc("POST preview.png", a.previewPNG)
			render.HandleFunc("POST generate", a.generate)
		}, wrappers(a.RenderLimit)...)
	}, wrappers(a.Admin)...)
}

func (a *API) maxBody() int64 {
	if a.MaxBody > 0 {
		return a.MaxBody
	}
	return defaultMaxBody
}

func (a *API) maxUpload() int64 {
	if a.MaxUpload > 0 {
		return a.MaxUpload
	}
	return 10 << 20
}

func eventID(r *http.Request) (int64, error) {
	id, err := constraints.ParseID[int64](r.PathValue("eventID"))
	if err != nil {
		return 0, errBadEventID
	}
	return id, nil
}
