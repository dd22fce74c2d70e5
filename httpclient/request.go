package httpclient

// Request describes an outbound request.
type Request struct {
	Method string
	// Path is appended to BaseURL. It may be a full URL when BaseURL is empty.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body accepts *MultipartBody, []byte, string, or a value to JSON-encode.
	Body any
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}
