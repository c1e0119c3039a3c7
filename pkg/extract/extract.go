// Package extract transforms decoded pipeline executions into flat
// stage-level report records.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/deploymetrics/harness-export/pkg/harness"
)

// DefaultEnvFilter is the environment type retained when none is configured.
const DefaultEnvFilter = "Production"

// Record is one flat output row: one (execution, qualifying stage) pair.
// Execution-level fields repeat across the stages of the same execution.
type Record struct {
	Pipeline        string
	ProjectID       string
	ExecutionURL    string
	ServiceName     string
	EndTime         string
	StartTime       string
	EnvironmentName string
	Status          string
	Duration        string
}

// Params carries the run-level identifiers needed to build records.
type Params struct {
	BaseURL   string
	AccountID string
	OrgID     string
	ProjectID string

	// EnvFilter is the infraExecutionSummary type a stage must report to
	// qualify. Empty means DefaultEnvFilter.
	EnvFilter string
}

// envFilter resolves the effective environment filter.
func (p Params) envFilter() string {
	if p.EnvFilter == "" {
		return DefaultEnvFilter
	}
	return p.EnvFilter
}

// stageInfo is one qualifying stage of an execution.
type stageInfo struct {
	environmentName string
	serviceName     string
	status          string
}

// qualifyingStages filters an execution's layout node map down to the stages
// whose CD environment type matches the filter. Nodes without CD module
// metadata or without an infra summary never qualify. A missing service is
// a blank service name, not an error.
func qualifyingStages(exec harness.Execution, envFilter string) []stageInfo {
	var stages []stageInfo

	for _, node := range exec.LayoutNodeMap {
		if node.ModuleInfo == nil || node.ModuleInfo.CD == nil {
			continue
		}

		cd := node.ModuleInfo.CD
		if cd.InfraExecutionSummary == nil || cd.InfraExecutionSummary.Type != envFilter {
			continue
		}

		serviceName := ""
		if cd.ServiceInfo != nil {
			serviceName = cd.ServiceInfo.DisplayName
		}

		stages = append(stages, stageInfo{
			environmentName: cd.InfraExecutionSummary.Name,
			serviceName:     serviceName,
			status:          node.Status,
		})
	}

	return stages
}

// FromExecution produces zero or more records for one execution. An
// execution with no qualifying stages contributes nothing.
func FromExecution(exec harness.Execution, p Params) []Record {
	stages := qualifyingStages(exec, p.envFilter())
	if len(stages) == 0 {
		return nil
	}

	execURL := ExecutionURL(p.BaseURL, p.AccountID, p.OrgID, p.ProjectID, exec.PipelineIdentifier, exec.PlanExecutionID)

	records := make([]Record, 0, len(stages))
	for _, stage := range stages {
		records = append(records, Record{
			Pipeline:        exec.Name,
			ProjectID:       p.ProjectID,
			ExecutionURL:    execURL,
			ServiceName:     stage.serviceName,
			EndTime:         FormatTimestamp(exec.EndTs),
			StartTime:       FormatTimestamp(exec.StartTs),
			EnvironmentName: stage.environmentName,
			Status:          stage.status,
			Duration:        FormatDuration(exec.StartTs, exec.EndTs),
		})
	}

	return records
}

// FromPage produces the records for every execution on a page, in page
// order.
func FromPage(page *harness.ExecutionPage, p Params) []Record {
	var records []Record
	for _, exec := range page.Content {
		records = append(records, FromExecution(exec, p)...)
	}
	return records
}

// ExecutionURL builds the console URL of an execution. A /gateway suffix on
// the base URL is not part of console links and is stripped.
func ExecutionURL(baseURL, accountID, orgID, projectID, pipelineID, executionID string) string {
	urlBase := strings.Replace(baseURL, "/gateway", "", 1)
	return fmt.Sprintf("%s/ng/#/account/%s/cd/orgs/%s/projects/%s/pipelines/%s/executions/%s/pipeline",
		urlBase, accountID, orgID, projectID, pipelineID, executionID)
}

// FormatTimestamp renders an epoch-millisecond timestamp as a UTC
// "2006-01-02 15:04:05" string. Zero renders empty.
func FormatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

// FormatDuration renders the span between two epoch-millisecond timestamps
// as HH:MM:SS. Either bound missing renders empty.
func FormatDuration(startMs, endMs int64) string {
	if startMs == 0 || endMs == 0 {
		return ""
	}

	seconds := (endMs - startMs) / 1000
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}
