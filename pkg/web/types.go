package web

import "github.com/dukex/journey/pkg/models"

// ReorderStepsRequest lists every step ID of a journey in its new order.
type ReorderStepsRequest struct {
	StepIDs []string `json:"step_ids" validate:"required,min=1,dive,required"`
}

// JourneyListResponse is a page of journeys with the applied pagination.
type JourneyListResponse struct {
	Journeys    []*models.Journey `json:"journeys"`
	TotalCount  int64             `json:"total_count"`
	HasNextPage bool              `json:"has_next_page"`
	Pagination  Pagination        `json:"pagination"`
}

// Pagination echoes the limit and offset of a listing.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// RunListResponse lists the runs of a journey.
type RunListResponse struct {
	Runs []*models.JourneyRun `json:"runs"`
}
