// Package httpclient is the HTTP client used to reach speech backend
// sidecars. It builds requests against a base URL, streams multipart
// uploads, applies bearer or API key auth and classifies failures so the
// resilience layer can tell retryable errors from permanent ones.
//
//	c, err := httpclient.New(httpclient.Config{BaseURL: "http://whisper:9000", Timeout: 30 * time.Minute})
//	var out transcribeResponse
//	err = c.DoJSON(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/transcribe",
//	    Body:   &httpclient.MultipartBody{Files: []httpclient.FileField{{FieldName: "audio", FileName: name, Reader: f}}},
//	}, &out)
package httpclient
