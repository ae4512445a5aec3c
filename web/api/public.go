package api

import (
	"net/http"
	"strconv"

	"github.com/zeptools/certgw/responses"
)

func (a *API) download(w http.ResponseWriter, r *http.Request) {
	name, data, err := a.Issuer.OpenDownload(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses.WritePDFAttachment(w, name, data)
}

// downloadQR serves the download link as a QR code. ?size= in pixels, 64..1024
func (a *API) downloadQR(w http.ResponseWriter, r *http.Request) {
	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			size = min(max(n, 64), 1024)
		}
	}
	png, err := a.Issuer.DownloadQR(r.PathValue("token"), size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses.WritePNGBytes(w, "", png)
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.Ready != nil {
		if err := a.Ready(r.Context()); err != nil {
			responses.Error(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	responses.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
