package harness

// ExecutionPage is one page of the execution-summary endpoint.
type ExecutionPage struct {
	Content       []Execution `json:"content"`
	TotalPages    int         `json:"totalPages"`
	TotalElements int         `json:"totalElements"`
}

// Execution is one pipeline execution summary as returned by the API.
type Execution struct {
	Name               string                `json:"name"`
	PipelineIdentifier string                `json:"pipelineIdentifier"`
	PlanExecutionID    string                `json:"planExecutionId"`
	StartTs            int64                 `json:"startTs"`
	EndTs              int64                 `json:"endTs"`
	Status             string                `json:"status"`
	LayoutNodeMap      map[string]LayoutNode `json:"layoutNodeMap"`
}

// LayoutNode is one stage node in an execution's layout node map.
type LayoutNode struct {
	Name       string      `json:"name"`
	StartTs    int64       `json:"startTs"`
	EndTs      int64       `json:"endTs"`
	Status     string      `json:"status"`
	ModuleInfo *ModuleInfo `json:"moduleInfo"`
}

// ModuleInfo holds per-module metadata on a stage node. Only the CD module
// carries the environment and service details this tool reports on.
type ModuleInfo struct {
	CD *CDModuleInfo `json:"cd"`
}

// CDModuleInfo is the CD module metadata of a stage.
type CDModuleInfo struct {
	InfraExecutionSummary *InfraExecutionSummary `json:"infraExecutionSummary"`
	ServiceInfo           *ServiceInfo           `json:"serviceInfo"`
}

// InfraExecutionSummary describes the environment a stage deployed to.
type InfraExecutionSummary struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ServiceInfo describes the service a stage deployed.
type ServiceInfo struct {
	DisplayName string `json:"displayName"`
}

// ProjectPage is one page of the aggregate-projects endpoint.
type ProjectPage struct {
	Content       []ProjectItem `json:"content"`
	TotalPages    int           `json:"totalPages"`
	TotalElements int           `json:"totalElements"`
}

// ProjectItem wraps one project entry of the aggregate-projects endpoint.
type ProjectItem struct {
	ProjectResponse ProjectResponse `json:"projectResponse"`
}

// ProjectResponse wraps the project object.
type ProjectResponse struct {
	Project Project `json:"project"`
}

// Project carries the project identifier.
type Project struct {
	Identifier string `json:"identifier"`
}

// Identifiers extracts the non-empty project identifiers of a page, in
// server order. Duplicates are preserved.
func (p *ProjectPage) Identifiers() []string {
	ids := make([]string, 0, len(p.Content))
	for _, item := range p.Content {
		if id := item.ProjectResponse.Project.Identifier; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
