// Package testutil provides testing utilities for the Harness exporter.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// API paths served by the mock.
const (
	ExecutionSummaryPath  = "/pipeline/api/pipelines/execution/summary"
	AggregateProjectsPath = "/ng/api/aggregate/projects"
)

// ExecutionRequest records one execution-summary request the mock served.
type ExecutionRequest struct {
	Page      int
	Size      int
	StartTime int64
	EndTime   int64
}

// MockHarness is a configurable mock Harness API server for testing.
type MockHarness struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	ExecutionRequests []ExecutionRequest
	ProjectRequests   int
	LastRequestHeader http.Header
}

// NewMockHarness creates a new mock Harness server.
func NewMockHarness() *MockHarness {
	mock := &MockHarness{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Re-buffer the body so both the tracking decode and the handler
		// can read it.
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(raw))
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()

		switch r.URL.Path {
		case ExecutionSummaryPath:
			mock.ExecutionRequests = append(mock.ExecutionRequests, ParseExecutionRequest(r))
		case AggregateProjectsPath:
			mock.ProjectRequests++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// ParseExecutionRequest extracts pagination and window parameters from an
// execution-summary request. The body is re-buffered so later readers
// still see it.
func ParseExecutionRequest(r *http.Request) ExecutionRequest {
	req := ExecutionRequest{}
	req.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	req.Size, _ = strconv.Atoi(r.URL.Query().Get("size"))

	var raw []byte
	if r.Body != nil {
		raw, _ = io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
	}

	var body struct {
		TimeRange struct {
			StartTime int64 `json:"startTime"`
			EndTime   int64 `json:"endTime"`
		} `json:"timeRange"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		req.StartTime = body.TimeRange.StartTime
		req.EndTime = body.TimeRange.EndTime
	}

	return req
}

// URL returns the mock server URL.
func (m *MockHarness) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockHarness) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockHarness) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ExecutionRequests = nil
	m.ProjectRequests = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockHarness) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetExecutionHandler sets the handler for the execution-summary endpoint.
func (m *MockHarness) SetExecutionHandler(handler func(w http.ResponseWriter, r *http.Request)) {
	m.SetHandler(ExecutionSummaryPath, handler)
}

// SetProjectHandler sets the handler for the aggregate-projects endpoint.
func (m *MockHarness) SetProjectHandler(handler func(w http.ResponseWriter, r *http.Request)) {
	m.SetHandler(AggregateProjectsPath, handler)
}

// GetRequestCount returns the number of requests the server saw.
func (m *MockHarness) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetExecutionRequests returns a copy of the recorded execution requests.
func (m *MockHarness) GetExecutionRequests() []ExecutionRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ExecutionRequest, len(m.ExecutionRequests))
	copy(out, m.ExecutionRequests)
	return out
}

// WriteJSON writes a JSON response body with status 200.
func WriteJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, body)
}

// ExecutionPageBody builds an execution-summary response body with the
// given pagination totals and execution JSON fragments as content.
func ExecutionPageBody(totalPages, totalElements int, executions ...string) string {
	content := "[]"
	if len(executions) > 0 {
		content = "["
		for i, e := range executions {
			if i > 0 {
				content += ","
			}
			content += e
		}
		content += "]"
	}
	return fmt.Sprintf(`{"data":{"content":%s,"totalPages":%d,"totalElements":%d}}`,
		content, totalPages, totalElements)
}

// ExecutionJSON builds one execution JSON fragment with a single stage
// node. envType selects the stage's environment type; an empty envType
// omits the CD module metadata entirely.
func ExecutionJSON(name, pipelineID, planID string, startTs, endTs int64, envType, envName, serviceName, stageStatus string) string {
	node := map[string]interface{}{
		"name":    name + "-stage",
		"startTs": startTs,
		"endTs":   endTs,
		"status":  stageStatus,
	}
	if envType != "" {
		cd := map[string]interface{}{
			"infraExecutionSummary": map[string]interface{}{
				"type": envType,
				"name": envName,
			},
		}
		if serviceName != "" {
			cd["serviceInfo"] = map[string]interface{}{"displayName": serviceName}
		}
		node["moduleInfo"] = map[string]interface{}{"cd": cd}
	}

	exec := map[string]interface{}{
		"name":               name,
		"pipelineIdentifier": pipelineID,
		"planExecutionId":    planID,
		"startTs":            startTs,
		"endTs":              endTs,
		"status":             "Success",
		"layoutNodeMap": map[string]interface{}{
			"node0": node,
		},
	}

	encoded, _ := json.Marshal(exec)
	return string(encoded)
}

// ProjectPageBody builds an aggregate-projects response body listing the
// given project identifiers.
func ProjectPageBody(totalPages, totalElements int, identifiers ...string) string {
	items := make([]map[string]interface{}, 0, len(identifiers))
	for _, id := range identifiers {
		items = append(items, map[string]interface{}{
			"projectResponse": map[string]interface{}{
				"project": map[string]interface{}{"identifier": id},
			},
		})
	}

	page := map[string]interface{}{
		"data": map[string]interface{}{
			"content":       items,
			"totalPages":    totalPages,
			"totalElements": totalElements,
		},
	}

	encoded, _ := json.Marshal(page)
	return string(encoded)
}
