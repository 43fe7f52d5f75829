package model

import "time"

// AssignedMessage is the joined view used by listing and dashboard
// endpoints.
type AssignedMessage struct {
	MsgID     int64     `json:"msg_id"`
	DeptID    string    `json:"dept_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type DeptCount struct {
	DeptID   string `json:"dept_id"`
	DeptName string `json:"dept_name"`
	Count    int64  `json:"count"`
}

type DeptStats struct {
	DeptID        string `json:"dept_id"`
	TotalAssigned int64  `json:"total_assigned"`
}
