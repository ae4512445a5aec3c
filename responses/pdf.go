package responses

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
)

// Disposition of a file response
type Disposition string

const (
	Inline     Disposition = "inline"
	Attachment Disposition = "attachment"
)

func WritePDFBytesWithFilename(w http.ResponseWriter, filename string, PDFBytes []byte) {
	WriteFileBytes(w, "application/pdf", Inline, filename, PDFBytes)
}

// WritePDFAttachment makes browsers save the PDF instead of displaying it
func WritePDFAttachment(w http.ResponseWriter, filename string, PDFBytes []byte) {
	WriteFileBytes(w, "application/pdf", Attachment, filename, PDFBytes)
}

func WritePNGBytes(w http.ResponseWriter, filename string, PNGBytes []byte) {
	WriteFileBytes(w, "image/png", Inline, filename, PNGBytes)
}

// WriteFileBytes write headers then the whole content. Headers are frozen afterward
func WriteFileBytes(w http.ResponseWriter, contentType string, disposition Disposition, filename string, data []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	if filename != "" {
		h.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	}
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK) // Response Header Sent & Frozen
	if _, err := w.Write(data); err != nil {
		log.Printf("[ERROR][HTTP] writing %s to response: %v", contentType, err)
	}
}
