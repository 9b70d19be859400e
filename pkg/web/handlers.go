// Package web provides the REST API for authoring, simulating and running journeys.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	journeyService    *services.Journey
	policyService     *services.Policy
	simulationService *services.Simulation
	executionService  *services.Execution
	validator         *validator.Validate
}

func NewAPIHandlers(
	journeyService *services.Journey,
	policyService *services.Policy,
	simulationService *services.Simulation,
	executionService *services.Execution,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		journeyService:    journeyService,
		policyService:     policyService,
		simulationService: simulationService,
		executionService:  executionService,
		validator:         validator,
	}
}

// RegisterRoutes mounts every journey endpoint on the router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/step-kinds", h.GetStepKinds)
	router.Post("/simulate", h.Preview)

	j := router.Group("/journeys")
	j.Get("/", h.GetJourneys)
	j.Post("/", h.CreateJourney)
	j.Get("/:id", h.GetJourney)
	j.Patch("/:id", h.UpdateJourney)
	j.Delete("/:id", h.DeleteJourney)
	j.Post("/:id/publish", h.PublishJourney)
	j.Post("/:id/simulate", h.SimulateJourney)
	j.Post("/:id/runs", h.StartRun)
	j.Get("/:id/runs", h.GetRuns)

	// Step endpoints:
	j.Post("/:id/steps", h.AddStep)
	j.Put("/:id/steps/order", h.ReorderSteps)
	j.Patch("/:id/steps/:stepId", h.UpdateStep)
	j.Delete("/:id/steps/:stepId", h.DeleteStep)

	router.Get("/runs/:runId", h.GetRun)

	o := router.Group("/organizations/:orgId")
	o.Get("/policy", h.GetPolicy)
	o.Put("/policy", h.UpdatePolicy)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.journeyService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Journey API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Journey API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetStepKinds(c fiber.Ctx) error {
	return c.JSON(h.journeyService.StepKinds())
}

func (h *APIHandlers) GetJourneys(c fiber.Ctx) error {
	req, err := parseListJourneysRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.journeyService.ListJourneys(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(JourneyListResponse{
		Journeys:    result.Journeys,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
		Pagination: Pagination{
			Limit:  req.Limit,
			Offset: req.Offset,
		},
	})
}

// parseListJourneysRequest reads filters and pagination from the query string.
func parseListJourneysRequest(c fiber.Ctx) (*services.ListJourneysRequest, error) {
	req := &services.ListJourneysRequest{
		OrganizationID: c.Query("organization_id"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.JourneyStatus(statusStr)
		req.Status = &status
	}

	return req, nil
}

func (h *APIHandlers) GetJourney(c fiber.Ctx) error {
	journey, err := h.journeyService.GetJourney(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(journey)
}

func (h *APIHandlers) CreateJourney(c fiber.Ctx) error {
	var req services.CreateJourneyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.journeyService.CreateJourney(c.Context(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateJourney(c fiber.Ctx) error {
	var req services.UpdateJourneyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.journeyService.UpdateJourney(c.Context(), c.Params("id"), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteJourney(c fiber.Ctx) error {
	err := h.journeyService.DeleteJourney(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishJourney(c fiber.Ctx) error {
	published, err := h.journeyService.PublishJourney(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(published)
}

func (h *APIHandlers) AddStep(c fiber.Ctx) error {
	var req services.StepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	step, err := h.journeyService.AddStep(c.Context(), c.Params("id"), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(step)
}

func (h *APIHandlers) UpdateStep(c fiber.Ctx) error {
	var req services.StepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	step, err := h.journeyService.UpdateStep(c.Context(), c.Params("id"), c.Params("stepId"), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(step)
}

func (h *APIHandlers) DeleteStep(c fiber.Ctx) error {
	err := h.journeyService.DeleteStep(c.Context(), c.Params("id"), c.Params("stepId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ReorderSteps(c fiber.Ctx) error {
	var req ReorderStepsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	journey, err := h.journeyService.ReorderSteps(c.Context(), c.Params("id"), req.StepIDs)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(journey)
}

func (h *APIHandlers) SimulateJourney(c fiber.Ctx) error {
	var req services.SimulateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.simulationService.Simulate(c.Context(), c.Params("id"), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// Preview simulates steps that have not been saved yet.
func (h *APIHandlers) Preview(c fiber.Ctx) error {
	var req services.PreviewRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.simulationService.Preview(c.Context(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) StartRun(c fiber.Ctx) error {
	var req services.StartRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	run, err := h.executionService.Start(c.Context(), c.Params("id"), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		limit = parsed
	}

	runs, err := h.executionService.ListRuns(c.Context(), c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(RunListResponse{Runs: runs})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	run, err := h.executionService.GetRun(c.Context(), c.Params("runId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) GetPolicy(c fiber.Ctx) error {
	policy, err := h.policyService.GetPolicy(c.Context(), c.Params("orgId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(policy)
}

func (h *APIHandlers) UpdatePolicy(c fiber.Ctx) error {
	var req services.UpdatePolicyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	policy, err := h.policyService.UpdatePolicy(c.Context(), c.Params("orgId"), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(policy)
}
