package graph

import "time"

// listEnvelope is the Graph collection wrapper: {"value": [...]}.
type listEnvelope[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink,omitempty"`
}

type Group struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"displayName"`
	Mail            string   `json:"mail"`
	Description     string   `json:"description"`
	GroupTypes      []string `json:"groupTypes"`
	Visibility      string   `json:"visibility"`
	CreatedDateTime string   `json:"createdDateTime"`
}

type Plan struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Owner           string `json:"owner"`
	CreatedDateTime string `json:"createdDateTime"`
}

type Bucket struct {
	ID        string `json:"id"`
	PlanID    string `json:"planId"`
	Name      string `json:"name"`
	OrderHint string `json:"orderHint"`
}

type Assignment struct {
	AssignedDateTime string `json:"assignedDateTime"`
	OrderHint        string `json:"orderHint"`
}

type Task struct {
	ID                string                `json:"id"`
	PlanID            string                `json:"planId"`
	BucketID          string                `json:"bucketId"`
	Title             string                `json:"title"`
	PercentComplete   int                   `json:"percentComplete"`
	Priority          int                   `json:"priority"`
	StartDateTime     string                `json:"startDateTime"`
	DueDateTime       string                `json:"dueDateTime"`
	CompletedDateTime string                `json:"completedDateTime"`
	CreatedDateTime   string                `json:"createdDateTime"`
	Assignments       map[string]Assignment `json:"assignments"`
	AppliedCategories map[string]bool       `json:"appliedCategories"`
}

type User struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"displayName"`
	Mail              string   `json:"mail"`
	UserPrincipalName string   `json:"userPrincipalName"`
	JobTitle          string   `json:"jobTitle"`
	Department        string   `json:"department"`
	MobilePhone       string   `json:"mobilePhone"`
	BusinessPhones    []string `json:"businessPhones"`
}

// ParseGraphTime parses the RFC3339 timestamps Graph emits. Returns nil for
// empty or malformed values so callers can store NULL.
func ParseGraphTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}
