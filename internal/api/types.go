package api

import (
	"time"

	"github.com/MJE43/maze-duel/internal/match"
)

// APIError is the structured error body of every failed request.
type APIError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

func (e APIError) Error() string {
	return e.Message
}

// Error types.
const (
	// Request errors
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeValidation    = "validation_error"
	ErrTypeNotFound      = "not_found"
	ErrTypeConflict      = "conflict"

	// Competitor errors
	ErrTypeSetupFault = "setup_fault"

	// System errors
	ErrTypeTimeout  = "timeout"
	ErrTypeInternal = "internal_error"
)

// ErrorCategory groups error types for logging.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryCompetitor ErrorCategory = "competitor"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type.
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidParams, ErrTypeValidation, ErrTypeNotFound, ErrTypeConflict:
		return CategoryValidation
	case ErrTypeSetupFault:
		return CategoryCompetitor
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information.
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// RegisterBotRequest registers or replaces a competitor program.
type RegisterBotRequest struct {
	Role   string `json:"role" validate:"required"`
	Name   string `json:"name" validate:"required,max=64"`
	Source string `json:"source" validate:"required"`
}

// CreateMatchRequest starts a match between two registered bots.
type CreateMatchRequest struct {
	MazeMaster  string `json:"mazeMaster" validate:"required"`
	Adventurers string `json:"adventurers" validate:"required"`
	Seed        string `json:"seed,omitempty" validate:"max=256"`
	// Pacing is "immediate" (default), "stepped" or "delay:<duration>".
	Pacing string `json:"pacing,omitempty"`
}

// CreateMatchResponse reports the new match. Seed is the seed actually
// used, generated when the request left it empty.
type CreateMatchResponse struct {
	Match MatchSummary `json:"match"`
	Seed  string       `json:"seed"`
}

// MatchSummary describes a match held by the server.
type MatchSummary struct {
	ID          string        `json:"id"`
	MazeMaster  string        `json:"mazeMaster"`
	Adventurers string        `json:"adventurers"`
	Pacing      string        `json:"pacing"`
	CreatedAt   time.Time     `json:"createdAt"`
	Phase       match.Phase   `json:"phase"`
	Status      match.Status  `json:"status"`
	TurnNumber  int           `json:"turnNumber"`
	MazeSize    int           `json:"mazeSize"`
	Score       int           `json:"score"`
	Result      *match.Result `json:"result,omitempty"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status        string `json:"status"`
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	Uptime        string `json:"uptime"`
	Matches       int    `json:"matches"`
	Timestamp     string `json:"timestamp"`
}
