package domain

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallExecuting ToolCallStatus = "executing"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallFailed    ToolCallStatus = "failed"
)

type Star struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	PhotoURL           string    `json:"photoUrl"`
	Description        string    `json:"description"`
	DistanceLightYears float64   `json:"distanceLightYears"`
	Constellation      string    `json:"constellation"`
	Magnitude          float64   `json:"magnitude"`
	CreatedAt          time.Time `json:"createdAt"`
}

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ToolCall  *ToolCall `json:"toolCall,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type ToolCall struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Status     ToolCallStatus  `json:"status"`
}

type NavigationResult struct {
	Success     bool   `json:"success"`
	Action      string `json:"action"`
	Destination string `json:"destination"`
	URL         string `json:"url"`
	Message     string `json:"message"`
}
