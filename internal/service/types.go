// Package service defines the backend-agnostic interface for task operations.
package service

// Task is a monitoring job definition held by the backend.
// TaskID is assigned by the server. Running and NextRunTime mirror live
// scheduler state and may be stale.
type Task struct {
	TaskID       int    `json:"task_id"`
	TaskName     string `json:"task_name"`
	Enabled      bool   `json:"enabled"`
	Keyword      string `json:"keyword"`
	Description  string `json:"description"`
	MaxPages     int    `json:"max_pages"`
	PersonalOnly bool   `json:"personal_only"`
	MinPrice     string `json:"min_price,omitempty"`
	MaxPrice     string `json:"max_price,omitempty"`
	Cron         string `json:"cron,omitempty"`
	Running      bool   `json:"running,omitempty"`
	NextRunTime  string `json:"next_run_time,omitempty"`
}

// NewTask is the payload of a create call.
type NewTask struct {
	TaskName     string `json:"task_name" validate:"required"`
	Enabled      bool   `json:"enabled"`
	Keyword      string `json:"keyword" validate:"required"`
	Description  string `json:"description"`
	MaxPages     int    `json:"max_pages" validate:"gte=1"`
	PersonalOnly bool   `json:"personal_only"`
	MinPrice     string `json:"min_price,omitempty" validate:"omitempty,numeric"`
	MaxPrice     string `json:"max_price,omitempty" validate:"omitempty,numeric"`
	Cron         string `json:"cron,omitempty"`
}

// TaskUpdate is a partial update. Nil fields are left unchanged.
type TaskUpdate struct {
	TaskID       int     `json:"task_id" validate:"gte=1"`
	TaskName     *string `json:"task_name,omitempty" validate:"omitempty,min=1"`
	Enabled      *bool   `json:"enabled,omitempty"`
	Keyword      *string `json:"keyword,omitempty" validate:"omitempty,min=1"`
	Description  *string `json:"description,omitempty"`
	MaxPages     *int    `json:"max_pages,omitempty" validate:"omitempty,gte=1"`
	PersonalOnly *bool   `json:"personal_only,omitempty"`
	MinPrice     *string `json:"min_price,omitempty" validate:"omitempty,numeric"`
	MaxPrice     *string `json:"max_price,omitempty" validate:"omitempty,numeric"`
	Cron         *string `json:"cron,omitempty"`
}

// Apply returns t with every non-nil field of u written over it.
func (u TaskUpdate) Apply(t Task) Task {
	if u.TaskName != nil {
		t.TaskName = *u.TaskName
	}
	if u.Enabled != nil {
		t.Enabled = *u.Enabled
	}
	if u.Keyword != nil {
		t.Keyword = *u.Keyword
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.MaxPages != nil {
		t.MaxPages = *u.MaxPages
	}
	if u.PersonalOnly != nil {
		t.PersonalOnly = *u.PersonalOnly
	}
	if u.MinPrice != nil {
		t.MinPrice = *u.MinPrice
	}
	if u.MaxPrice != nil {
		t.MaxPrice = *u.MaxPrice
	}
	if u.Cron != nil {
		t.Cron = *u.Cron
	}
	return t
}

// Task builds the Task a create call is expected to produce, minus the id.
func (n NewTask) Task(id int) Task {
	return Task{
		TaskID:       id,
		TaskName:     n.TaskName,
		Enabled:      n.Enabled,
		Keyword:      n.Keyword,
		Description:  n.Description,
		MaxPages:     n.MaxPages,
		PersonalOnly: n.PersonalOnly,
		MinPrice:     n.MinPrice,
		MaxPrice:     n.MaxPrice,
		Cron:         n.Cron,
	}
}

// TaskStatus is the live scheduler state of one task.
type TaskStatus struct {
	TaskID      int    `json:"task_id"`
	Running     bool   `json:"running"`
	NextRunTime string `json:"next_run_time,omitempty"`
}

// Result sort keys and orders accepted by the backend.
const (
	SortByCrawlTime   = "crawl_time"
	SortByPublishTime = "publish_time"
	SortByPrice       = "price"

	OrderAsc  = "asce"
	OrderDesc = "desc"
)

// ResultQuery selects one page of results.
type ResultQuery struct {
	Page            int    `json:"page,omitempty" validate:"omitempty,gte=1"`
	Limit           int    `json:"limit,omitempty" validate:"omitempty,gte=1,lte=500"`
	SortBy          string `json:"sort_by,omitempty" validate:"omitempty,oneof=crawl_time publish_time price"`
	RecommendedOnly bool   `json:"recommended_only,omitempty"`
	Order           string `json:"order,omitempty" validate:"omitempty,oneof=asce desc"`
}

// ResultPage is one page of results.
type ResultPage struct {
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Items []TaskResult `json:"items"`
}

// TaskResult is one observed marketplace listing. Field names follow the
// backend's record format.
type TaskResult struct {
	CrawlTime string          `json:"爬取时间"`
	Keyword   string          `json:"搜索关键字"`
	TaskName  string          `json:"任务名称"`
	Listing   Listing         `json:"商品信息"`
	Seller    Seller          `json:"卖家信息"`
	Analysis  *ResultAnalysis `json:"分析结果,omitempty"`
}

// Listing describes the item that was found.
type Listing struct {
	Title         string   `json:"商品标题"`
	Price         string   `json:"当前售价"`
	OriginalPrice string   `json:"商品原价"`
	WantCount     string   `json:"想要人数"`
	Tags          []string `json:"商品标签"`
	ShipFrom      string   `json:"发货地区"`
	URL           string   `json:"商品链接"`
	PublishTime   string   `json:"发布时间"`
	ID            string   `json:"商品ID"`
	Views         int      `json:"浏览量"`
	Description   string   `json:"商品描述"`
	Images        []string `json:"商品图片列表"`
}

// Seller describes who posted the listing.
type Seller struct {
	ID             int64  `json:"卖家ID"`
	Nickname       string `json:"卖家昵称"`
	Verified       string `json:"实名认证"`
	ReplyInterval  string `json:"回复间隔"`
	ReplyRate24h   string `json:"二十四小时回复率"`
	RegisteredDays string `json:"注册天数"`
	About          string `json:"卖家个人描述"`
	CreditRating   string `json:"卖家信用"`
}

// ResultAnalysis is the optional AI recommendation attached to a result.
type ResultAnalysis struct {
	Score      int    `json:"推荐度"`
	Suggestion string `json:"建议"`
	Reason     string `json:"原因"`
}

// LoginResult is returned by a credential exchange.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}
