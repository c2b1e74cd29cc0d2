package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type UserProfile struct {
	ID         string
	TenantID   string
	Email      string
	FullName   string
	Role       string
	Department sql.NullString
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Area struct {
	ID          string
	TenantID    string
	Title       string
	Description sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Objective struct {
	ID          string
	TenantID    string
	Title       string
	Description sql.NullString
	AreaID      sql.NullString
	OwnerID     sql.NullString
	Status      string
	Progress    int
	StartDate   sql.NullTime
	TargetDate  sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Initiative struct {
	ID          string
	TenantID    string
	Title       string
	Description sql.NullString
	AreaID      sql.NullString
	OwnerID     sql.NullString
	Status      string
	Priority    string
	Progress    int
	TargetDate  sql.NullTime
	Budget      decimal.NullDecimal
	ActualCost  decimal.NullDecimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Activity struct {
	ID           string
	TenantID     string
	InitiativeID string
	Title        string
	Description  sql.NullString
	AssignedTo   sql.NullString
	Status       string
	Priority     string
	Progress     int
	DueDate      sql.NullTime
	IsCompleted  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ObjectiveInitiativeLink struct {
	ID           string
	TenantID     string
	ObjectiveID  string
	InitiativeID string
	CreatedAt    time.Time
}

type ImportJob struct {
	ID               string
	TenantID         string
	EntityType       string
	Status           string
	UpdateExisting   bool
	TotalRows        int
	ProcessedRows    int
	SuccessRows      int
	ErrorRows        int
	SkippedRows      int
	WarningRows      int
	FileKey          sql.NullString
	FileName         sql.NullString
	ErrorCode        sql.NullString
	ErrorParams      []byte
	FileWarnings     []byte
	CreatedBy        sql.NullString
	CancelRequested  bool
	LockedAt         sql.NullTime
	LockedBy         sql.NullString
	Attempts         int
	CreatedAt        time.Time
	StartedAt        sql.NullTime
	CompletedAt      sql.NullTime
	ProcessingTimeMS sql.NullInt64
}

type ImportJobItem struct {
	ID              string
	JobID           string
	RowNumber       int
	Status          string
	ErrorCode       sql.NullString
	ErrorParams     []byte
	Outcomes        []byte
	CreatedEntityID sql.NullString
	CreatedAt       time.Time
}
