package httpclient

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// MultipartBody is a multipart/form-data body. Files are streamed from their
// readers, so a recording is never buffered in memory whole.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is one file part.
type FileField struct {
	FieldName string
	FileName  string
	// ContentType defaults to application/octet-stream.
	ContentType string
	Reader      io.Reader
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// encode returns a reader that produces the body on demand and the matching
// Content-Type. Write errors surface as read errors on the returned reader.
func (m *MultipartBody) encode() (io.Reader, string) {
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(m.write(w))
	}()
	return pr, w.FormDataContentType()
}

func (m *MultipartBody) write(w *multipart.Writer) error {
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, f := range m.Files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			`form-data; name="`+quoteEscaper.Replace(f.FieldName)+`"; filename="`+quoteEscaper.Replace(f.FileName)+`"`)
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if f.Reader != nil {
			if _, err := io.Copy(part, f.Reader); err != nil {
				return err
			}
		}
	}
	return w.Close()
}
