// Package health provides system health monitoring and the HTTP surface
// of a running profile.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// NetworkHealth describes the active ledger connection.
type NetworkHealth struct {
	Network  string       `json:"network"`
	Status   SystemStatus `json:"status"`
	Session  string       `json:"session"`
	TipBlock uint64       `json:"tip_block,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ComponentHealth is the result of one dependency check (database, redis).
type ComponentHealth struct {
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Network      NetworkHealth              `json:"network"`
	Components   map[string]ComponentHealth `json:"components,omitempty"`
}
