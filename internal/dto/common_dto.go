package dto

type PaginationMeta struct {
	TotalItems int64  `json:"total_items,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}
