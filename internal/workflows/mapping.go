package workflows

import "github.com/acrewise/acrewise/pkg/query"

func instanceProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "workflow_instances", "wi").
		Project("id", "id").
		Project("owner_id", "ownerId").
		Project("workflow_type", "workflowType").
		Project("status", "status").
		Project("current_node", "currentNode").
		Project("data", "data").
		Project("version", "version").
		Project("created_at", "createdAt").
		Project("updated_at", "updatedAt")
}

func defaultSort() []query.SortField {
	return []query.SortField{
		{Field: "createdAt", Descending: true},
	}
}
