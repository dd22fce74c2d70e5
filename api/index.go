package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarscribe/diarization"
	"github.com/kbukum/diarscribe/server"
	"github.com/kbukum/diarscribe/transcription"
)

//go:embed static/index.html
var staticFS embed.FS

var indexTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))

type indexData struct {
	Models         []string
	DefaultModel   string
	DefaultThreads int
	MaxThreads     int
	MaxSpeakers    int
	ServerToken    bool
	AuthRequired   bool
}

// Index renders the upload page.
func (h *Handler) Index(c *gin.Context) {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, indexData{
		Models:         transcription.Models,
		DefaultModel:   h.jobs.DefaultModel(),
		DefaultThreads: h.jobs.DefaultThreads(),
		MaxThreads:     transcription.MaxThreads,
		MaxSpeakers:    diarization.MaxSpeakers,
		ServerToken:    h.jobs.HasServerToken(),
		AuthRequired:   h.validator != nil,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
