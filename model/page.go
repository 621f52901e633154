package model

// 分页默认值
const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// PageResult is the standard paged response envelope.
type PageResult struct {
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	List  interface{} `json:"list"`
}

// NewPageResult clamps page/size to their allowed ranges and wraps the items.
func NewPageResult(total int64, page, size int, list interface{}) *PageResult {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return &PageResult{Total: total, Page: page, Size: size, List: list}
}
