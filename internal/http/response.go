package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wesleyorama2/chatload/pkg/jsonpath"
)

// TimingInfo breaks down where the time of a single round trip went
type TimingInfo struct {
	StartTime        time.Time
	ConnectTime      time.Duration
	TLSHandshakeTime time.Duration
	TimeToFirstByte  time.Duration
	TotalTime        time.Duration
	ConnectionReused bool
}

// Response represents a fully read HTTP response
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Timing     TimingInfo
	body       []byte
}

// Body returns the raw response body
func (r *Response) Body() []byte {
	return r.body
}

// BodyString returns the response body as a string
func (r *Response) BodyString() string {
	return string(r.body)
}

// DecodeJSON unmarshals the response body into v
func (r *Response) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.body, v)
}

// Extract returns the value at a JSONPath expression in the body
func (r *Response) Extract(path string) (string, error) {
	return jsonpath.Extract(string(r.body), path)
}

// GetHeader returns the value of the specified header
func (r *Response) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsClientError returns true if the response status code is in the 4xx range
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
