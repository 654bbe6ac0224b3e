package handler

import (
	"net/http"

	"github.com/seattleguide/seattleguide/internal/models"
	"github.com/seattleguide/seattleguide/internal/tools"
)

// ToolsHandler handles GET /api/v1/tools
type ToolsHandler struct {
	registry *tools.Registry
}

// NewToolsHandler lists the tools of a registry holding every known tool.
func NewToolsHandler(registry *tools.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, models.ToolsResponse{
		Status: "success",
		Tools:  ToolInfos(h.registry),
	})
}

// ToolInfos describes every tool of reg in name order.
func ToolInfos(reg *tools.Registry) []models.ToolInfo {
	list := reg.Tools()
	out := make([]models.ToolInfo, 0, len(list))
	for _, t := range list {
		out = append(out, models.ToolInfo{
			Name:        string(t.Name),
			Description: t.Description,
			InputSchema: t.InputSchema(),
		})
	}
	return out
}
