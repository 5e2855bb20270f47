package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/service"
)

// InventoryHandler serves the inventory API
type InventoryHandler struct {
	inv    *service.Inventory
	logger *zap.Logger
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Class     string `json:"class,omitempty"`
	ID        string `json:"id,omitempty"`
	Attribute string `json:"attribute,omitempty"`
}

// IDResponse is returned after creating a single entity
type IDResponse struct {
	ID string `json:"id"`
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inv *service.Inventory, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{inv: inv, logger: logger.Named("http")}
}

// Register adds the API routes to mux
func (h *InventoryHandler) Register(mux *http.ServeMux) {
	// Classes and attributes
	mux.HandleFunc("GET /api/classes", h.ListClasses)
	mux.HandleFunc("POST /api/classes", h.CreateClass)
	mux.HandleFunc("GET /api/classes/{class}", h.GetClass)
	mux.HandleFunc("PATCH /api/classes/{class}", h.UpdateClass)
	mux.HandleFunc("DELETE /api/classes/{class}", h.DeleteClass)
	mux.HandleFunc("GET /api/classes/{class}/subclasses", h.ListSubClasses)
	mux.HandleFunc("GET /api/classes/{class}/hierarchy", h.GetClassHierarchy)
	mux.HandleFunc("GET /api/classes/{class}/containers", h.GetContainmentHierarchy)
	mux.HandleFunc("POST /api/classes/{class}/attributes", h.CreateAttribute)
	mux.HandleFunc("PATCH /api/classes/{class}/attributes/{attribute}", h.UpdateAttribute)
	mux.HandleFunc("DELETE /api/classes/{class}/attributes/{attribute}", h.DeleteAttribute)

	// Containment rules
	mux.HandleFunc("GET /api/rules", h.ListPossibleChildren)
	mux.HandleFunc("POST /api/rules", h.AddPossibleChildren)
	mux.HandleFunc("DELETE /api/rules", h.RemovePossibleChildren)
	mux.HandleFunc("GET /api/rules/check", h.CheckContainment)

	// Business objects
	mux.HandleFunc("POST /api/objects", h.CreateObject)
	mux.HandleFunc("POST /api/objects/bulk", h.CreateObjects)
	mux.HandleFunc("POST /api/objects/move", h.MoveObjects)
	mux.HandleFunc("POST /api/objects/copy", h.CopyObjects)
	mux.HandleFunc("POST /api/objects/delete", h.DeleteObjects)
	mux.HandleFunc("GET /api/objects/{class}", h.ListObjects)
	mux.HandleFunc("GET /api/objects/{class}/{id}", h.GetObject)
	mux.HandleFunc("PATCH /api/objects/{class}/{id}", h.UpdateObject)
	mux.HandleFunc("DELETE /api/objects/{class}/{id}", h.DeleteObject)
	mux.HandleFunc("GET /api/objects/{class}/{id}/parent", h.GetParent)
	mux.HandleFunc("GET /api/objects/{class}/{id}/parents", h.GetParents)
	mux.HandleFunc("GET /api/objects/{class}/{id}/children", h.GetChildren)
	mux.HandleFunc("GET /api/objects/{class}/{id}/special-children", h.GetSpecialChildren)
	mux.HandleFunc("GET /api/objects/{class}/{id}/special-parents", h.GetSpecialParents)
	mux.HandleFunc("GET /api/objects/{class}/{id}/siblings", h.GetSiblings)
	mux.HandleFunc("GET /api/objects/{class}/{id}/can-delete", h.CanDeleteObject)
	mux.HandleFunc("GET /api/objects/{class}/{id}/relationships", h.GetRelationships)
	mux.HandleFunc("GET /api/objects/{class}/{id}/relationships/{name}", h.GetRelated)
	mux.HandleFunc("PUT /api/objects/{class}/{id}/processes/{process}", h.AttachProcess)
	mux.HandleFunc("DELETE /api/objects/{class}/{id}/processes/{process}", h.DetachProcess)

	// Special relationships and routes
	mux.HandleFunc("POST /api/relationships", h.CreateRelationship)
	mux.HandleFunc("DELETE /api/relationships", h.ReleaseRelationship)
	mux.HandleFunc("GET /api/routes", h.FindRoutes)

	// List types, pools, templates
	mux.HandleFunc("GET /api/listtypes/{class}/items", h.ListItems)
	mux.HandleFunc("POST /api/listtypes/{class}/items", h.CreateListItem)
	mux.HandleFunc("DELETE /api/listtypes/{class}/items/{id}", h.DeleteListItem)

	mux.HandleFunc("GET /api/pools", h.ListRootPools)
	mux.HandleFunc("POST /api/pools", h.CreatePool)
	mux.HandleFunc("POST /api/pools/delete", h.DeletePools)
	mux.HandleFunc("GET /api/pools/{id}", h.GetPool)
	mux.HandleFunc("GET /api/pools/{id}/items", h.ListPoolItems)
	mux.HandleFunc("POST /api/pools/{id}/items", h.CreatePoolItem)
	mux.HandleFunc("POST /api/pools/{id}/move", h.MovePoolItem)
	mux.HandleFunc("POST /api/pools/{id}/copy", h.CopyPoolItem)

	mux.HandleFunc("GET /api/templates", h.ListTemplates)
	mux.HandleFunc("POST /api/templates", h.CreateTemplate)
	mux.HandleFunc("POST /api/templates/{id}/clone", h.CloneTemplate)
	mux.HandleFunc("POST /api/templates/elements", h.CreateTemplateElement)
	mux.HandleFunc("POST /api/templates/relationships", h.RelateTemplateElements)
	mux.HandleFunc("GET /api/templates/elements/{class}/{id}", h.GetTemplateElement)
	mux.HandleFunc("PATCH /api/templates/elements/{class}/{id}", h.UpdateTemplateElement)
	mux.HandleFunc("DELETE /api/templates/elements/{class}/{id}", h.DeleteTemplateElement)
	mux.HandleFunc("GET /api/templates/elements/{class}/{id}/children", h.GetTemplateElementChildren)

	// Data model
	mux.HandleFunc("GET /api/datamodel", h.ExportDataModel)
	mux.HandleFunc("POST /api/datamodel", h.ImportDataModel)
}

// Helper methods

func (h *InventoryHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *InventoryHandler) writeError(w http.ResponseWriter, message, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: message, Details: details}, statusCode)
}

// writeFailure reports err with the status code matching its kind
func (h *InventoryHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: http.StatusText(status), Details: err.Error()}
	if e, ok := domain.AsError(err); ok {
		resp.Class = e.Class
		resp.ID = e.ID
		resp.Attribute = e.Attribute
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	h.writeJSON(w, resp, status)
}

func statusFor(err error) int {
	switch {
	// A conflict also matches ErrInvalidArgument
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOperationNotPermitted):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// decode reads a JSON request body into v, answering 400 when it cannot
func (h *InventoryHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// queryBool reads an optional boolean query parameter
func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.InvalidArgumentf("query parameter %s must be a boolean", name)
	}
	return v, nil
}

// queryBools reads several boolean parameters, stopping at the first bad one
func queryBools(r *http.Request, names ...string) ([]bool, error) {
	out := make([]bool, len(names))
	for i, name := range names {
		v, err := queryBool(r, name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domain.InvalidArgumentf("query parameter %s must be a non-negative integer", name)
	}
	return v, nil
}

// queryPage reads skip and limit
func queryPage(r *http.Request) (domain.Page, error) {
	skip, err := queryInt(r, "skip")
	if err != nil {
		return domain.Page{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Skip: skip, Limit: limit}, nil
}

// pathClass returns the class path value; "-" stands for "any class" so
// callers that only know an id can still address an object
func pathClass(r *http.Request) string {
	class := r.PathValue("class")
	if class == "-" {
		return ""
	}
	return class
}

func requireField(name, value string) error {
	if value == "" {
		return domain.InvalidArgumentf("%s is required", name)
	}
	return nil
}

