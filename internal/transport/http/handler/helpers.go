package handler

import (
	"log/slog"
	"net/http"

	"github.com/afonsoingles/helper-scheduler/internal/catalogue"
	"github.com/afonsoingles/helper-scheduler/internal/directory"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/mutation"
	"github.com/gin-gonic/gin"
)

// HelperHandler implements the Mutation API: the boundary that validates
// requests and calls into the mutation/catalogue use cases.
type HelperHandler struct {
	mutation  *mutation.Service
	catalogue *catalogue.Catalogue
	users     directory.UserDirectory
	logger    *slog.Logger
}

func NewHelperHandler(svc *mutation.Service, cat *catalogue.Catalogue, users directory.UserDirectory, logger *slog.Logger) *HelperHandler {
	return &HelperHandler{mutation: svc, catalogue: cat, users: users, logger: logger.With("component", "helper_handler")}
}

// GET /v2/helpers
// Lists every helper visible to the caller: internal and disabled helpers
// are never shown; admin_only helpers are shown only to admins or to an
// admin impersonating a subject user.
func (h *HelperHandler) List(c *gin.Context) {
	isAdmin := c.GetBool("isAdmin")
	impersonating := c.GetBool("impersonating")

	defs, err := h.catalogue.All(c.Request.Context())
	if err != nil {
		h.logger.Error("list helpers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": errInternalServer})
		return
	}

	visible := make([]domain.HelperDefinition, 0, len(defs))
	for _, def := range defs {
		if def.Internal || def.Disabled {
			continue
		}
		if def.AdminOnly && !isAdmin && !impersonating {
			continue
		}
		visible = append(visible, def)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Helpers fetched successfully", "helpers": visible})
}

type registerHelperRequest struct {
	HelperID string                 `json:"id" binding:"required"`
	Params   map[string]interface{} `json:"params"`
	Schedule []string               `json:"schedule"`
}

// POST /v2/helpers
func (h *HelperHandler) Register(c *gin.Context) {
	var req registerHelperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON data provided", "code": "invalid_json"})
		return
	}

	sub, err := h.mutation.Register(c.Request.Context(), c.GetString("userID"), c.GetBool("impersonating"), mutation.RegisterRequest{
		HelperID: req.HelperID,
		Params:   req.Params,
		Schedule: req.Schedule,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Helper registered successfully!", "helper": sub})
}

// DELETE /v2/helpers/:id
func (h *HelperHandler) Unregister(c *gin.Context) {
	helperID := c.Param("id")

	if err := h.mutation.Unregister(c.Request.Context(), c.GetString("userID"), helperID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Helper unregistered successfully!"})
}

type updateHelperRequest struct {
	Params   map[string]interface{} `json:"params"`
	Schedule []string               `json:"schedule"`
	Enabled  *bool                  `json:"enabled"`
}

// PUT /v2/helpers/:id
func (h *HelperHandler) Update(c *gin.Context) {
	helperID := c.Param("id")

	var req updateHelperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON data provided", "code": "invalid_json"})
		return
	}

	sub, err := h.mutation.Update(c.Request.Context(), c.GetString("userID"), helperID, mutation.UpdateRequest{
		Params:      req.Params,
		Schedule:    req.Schedule,
		HasSchedule: req.Schedule != nil,
		Enabled:     req.Enabled,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Helper updated successfully!", "helper": sub})
}

type setHelperEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// PATCH /v2/admin/helpers/:id
// Admin-only: flips a catalogue entry's enabled state. Distinct from
// Update, which toggles one user's subscription.
func (h *HelperHandler) SetEnabled(c *gin.Context) {
	helperID := c.Param("id")

	var req setHelperEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON data provided", "code": "invalid_json"})
		return
	}

	if err := h.mutation.SetHelperEnabled(c.Request.Context(), helperID, *req.Enabled); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Helper updated successfully!"})
}
