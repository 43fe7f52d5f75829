package model

import "time"

type Message struct {
	MsgID     int64     `json:"msg_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
