package task

import "fmt"

// Record 是列表输出中的一行，负责人名称在查询时解析。
type Record struct {
	ID          TaskID `json:"id"`
	Description string `json:"description"`
	OwnerID     UserID `json:"owner_id"`
	OwnerName   string `json:"owner_name"`
	Completed   bool   `json:"completed"`
}

func (r Record) String() string {
	return fmt.Sprintf("Task %d: %s (Owner: %s, Completed: %t)", r.ID, r.Description, r.OwnerName, r.Completed)
}

// Stats 聚合了注册表的规模信息，常用于指标与状态命令。
type Stats struct {
	Users     int `json:"users"`
	Total     int `json:"total"`
	Open      int `json:"open"`
	Completed int `json:"completed"`
}
