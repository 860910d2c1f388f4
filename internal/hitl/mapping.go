package hitl

import "github.com/acrewise/acrewise/pkg/query"

func requestProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "hitl_requests", "hr").
		Project("id", "id").
		Project("owner_id", "ownerId").
		Project("document_id", "documentId").
		Project("workflow_id", "workflowId").
		Project("urgency", "urgency").
		Project("status", "status").
		Project("reasons", "reasons").
		Project("snapshot", "snapshot").
		Project("resolved_by", "resolvedBy").
		Project("resolution_notes", "resolutionNotes").
		Project("corrected_data", "correctedData").
		Project("created_at", "createdAt").
		Project("resolved_at", "resolvedAt")
}

// urgencyOrder ranks urgency for queue ordering; passed through the sort
// mapping as a raw expression.
const urgencyOrder = "CASE hr.urgency WHEN 'critical' THEN 3 WHEN 'high' THEN 2 WHEN 'medium' THEN 1 ELSE 0 END"

func queueSort() []query.SortField {
	return []query.SortField{
		{Field: urgencyOrder, Descending: true},
		{Field: "createdAt", Descending: false},
	}
}
