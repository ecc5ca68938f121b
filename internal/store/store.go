// Package store persists the three record families of the assistant:
// user identities, per-user memory entries and global prompt rules.
package store

import "time"

type User struct {
	ID        string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type MemoryEntry struct {
	ID      int64  `json:"id"`
	UserID  string `json:"user_id"`
	Context string `json:"context"`
}

type Rule struct {
	ID              int64     `json:"id"`
	Text            string    `json:"rule_text"`
	Category        string    `json:"error_category"`
	ValidationScore float64   `json:"validation_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// Stats summarizes how much the system has learned so far.
type Stats struct {
	TotalRules         int            `json:"total_rules"`
	TotalUsers         int            `json:"total_users"`
	TotalMemories      int            `json:"total_memories"`
	ErrorDistribution  map[string]int `json:"error_distribution"`
	AvgValidationScore float64        `json:"avg_validation_score"`
}
