package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/triage-backend/internal/data/repos"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/http/response"
	"github.com/yungbote/triage-backend/internal/services"
)

type PotentialHandler struct {
	potentials services.PotentialService
}

func NewPotentialHandler(potentials services.PotentialService) *PotentialHandler {
	return &PotentialHandler{potentials: potentials}
}

// GET /api/potentials?status=
func (h *PotentialHandler) List(c *gin.Context) {
	views, err := h.potentials.List(c.Request.Context(), repos.PotentialFilter{
		Status: types.PotentialStatus(strings.TrimSpace(c.Query("status"))),
		Limit:  intQuery(c, "limit", 100, 500),
		Offset: intQuery(c, "offset", 0, 0),
	})
	if err != nil {
		response.RespondAPIError(c, err, "list_potentials_failed")
		return
	}
	response.RespondOK(c, gin.H{"potentials": views})
}

// POST /api/potentials
func (h *PotentialHandler) Create(c *gin.Context) {
	var in services.PotentialCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p, err := h.potentials.Create(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err, "create_potential_failed")
		return
	}
	response.RespondCreated(c, gin.H{"potential": p})
}

// GET /api/potentials/:id
func (h *PotentialHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_potential_id", err)
		return
	}
	d, err := h.potentials.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_potential_failed")
		return
	}
	response.RespondOK(c, gin.H{"potential": d})
}

// PATCH /api/potentials/:id
func (h *PotentialHandler) Update(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_potential_id", err)
		return
	}
	var patch services.PotentialPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p, err := h.potentials.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.RespondAPIError(c, err, "update_potential_failed")
		return
	}
	response.RespondOK(c, gin.H{"potential": p})
}
