package domain

import "errors"

var (
	ErrNotFound        = errors.New("entity not found")
	ErrPlannerNotFound = errors.New("planner not found")
)
