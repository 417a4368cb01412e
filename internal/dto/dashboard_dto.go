package dto

// ProjectDashboardResponse aggregates activity progress for one project.
// CompletionRatio is derived from activity statuses; Progress is the stored,
// independently settable project field. The two are reported side by side.
type ProjectDashboardResponse struct {
	ProjectID       string                `json:"project_id"`
	Status          string                `json:"status"`
	Progress        int                   `json:"progress"`
	TotalActivities int64                 `json:"total_activities"`
	StatusCounts    map[string]int64      `json:"status_counts"`
	CompletionRatio float64               `json:"completion_ratio"`
	RecentLogs      []ActivityLogResponse `json:"recent_logs"`
}
