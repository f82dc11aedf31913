package model

type SearchWorkspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SearchBoard struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
}

type SearchGroup struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	Name    string `json:"name"`
}

type SearchItem struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
}

// SearchResponse is the result of GET /searcher.
type SearchResponse struct {
	Workspaces []SearchWorkspace `json:"workspaces"`
	Boards     []SearchBoard     `json:"boards"`
	Groups     []SearchGroup     `json:"groups"`
	Items      []SearchItem      `json:"items"`
}

// Empty reports whether the search matched nothing.
func (r SearchResponse) Empty() bool {
	return len(r.Workspaces) == 0 && len(r.Boards) == 0 && len(r.Groups) == 0 && len(r.Items) == 0
}
