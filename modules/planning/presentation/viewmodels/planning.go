package viewmodels

// API list payloads. Dates render as 2006-01-02, timestamps as RFC 3339,
// absent uuids and optional fields as omitted keys.

type UserProfile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type Area struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type Objective struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AreaID      string `json:"area_id,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	StartDate   string `json:"start_date,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type Initiative struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AreaID      string `json:"area_id,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Progress    int    `json:"progress"`
	TargetDate  string `json:"target_date,omitempty"`
	Budget      string `json:"budget,omitempty"`
	ActualCost  string `json:"actual_cost,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type Activity struct {
	ID           string `json:"id"`
	InitiativeID string `json:"initiative_id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	AssignedTo   string `json:"assigned_to,omitempty"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	Progress     int    `json:"progress"`
	DueDate      string `json:"due_date,omitempty"`
	IsCompleted  bool   `json:"is_completed"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
