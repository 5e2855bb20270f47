package handler

import (
	"net/http"

	"assetgraph/internal/domain"
	"assetgraph/internal/service"
)

// ListItemRequest creates an item of a list type
type ListItemRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

// PoolItemRequest creates an object inside a pool
type PoolItemRequest struct {
	ClassName  string            `json:"class_name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
}

// PoolTransferRequest moves or copies an object into a pool
type PoolTransferRequest struct {
	ClassName string `json:"class_name"`
	ID        string `json:"id"`
	Recursive bool   `json:"recursive,omitempty"`
}

// DeletePoolsRequest deletes pools with their contents
type DeletePoolsRequest struct {
	IDs     []string `json:"ids"`
	Release bool     `json:"release,omitempty"`
}

// TemplateRequest creates a template
type TemplateRequest struct {
	ClassName string `json:"class_name"`
	Name      string `json:"name"`
}

// TemplateRelationshipRequest relates two template elements
type TemplateRelationshipRequest struct {
	AID  string `json:"a_id"`
	BID  string `json:"b_id"`
	Name string `json:"name"`
}

// CloneResponse is returned after instantiating a template
type CloneResponse struct {
	ID      string            `json:"id"`
	Mapping map[string]string `json:"mapping"`
}

// List types

// ListItems returns the items of a list type and of its subclasses
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.ListTypeItems(r.Context(), r.PathValue("class"))
	})
}

// CreateListItem creates an item of a list type
func (h *InventoryHandler) CreateListItem(w http.ResponseWriter, r *http.Request) {
	var req ListItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.inv.CreateListTypeItem(r.Context(), r.PathValue("class"), req.Name, req.DisplayName)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// DeleteListItem deletes an item of a list type
func (h *InventoryHandler) DeleteListItem(w http.ResponseWriter, r *http.Request) {
	release, err := queryBool(r, "release")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if err := h.inv.DeleteListTypeItem(r.Context(), r.PathValue("class"), r.PathValue("id"), release); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pools

// ListRootPools returns the pools without a parent, optionally only those
// holding ?class
func (h *InventoryHandler) ListRootPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.inv.RootPools(r.Context(), r.URL.Query().Get("class"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if pools == nil {
		pools = []domain.Pool{}
	}
	h.writeJSON(w, pools, http.StatusOK)
}

// CreatePool creates a pool
func (h *InventoryHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var spec service.PoolSpec
	if !h.decode(w, r, &spec) {
		return
	}
	id, err := h.inv.CreatePool(r.Context(), spec)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// GetPool returns a pool
func (h *InventoryHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.inv.Pool(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, pool, http.StatusOK)
}

// ListPoolItems returns the objects in a pool
func (h *InventoryHandler) ListPoolItems(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.PoolItems(r.Context(), r.PathValue("id"), page)
	})
}

// CreatePoolItem creates an object inside a pool
func (h *InventoryHandler) CreatePoolItem(w http.ResponseWriter, r *http.Request) {
	var req PoolItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.inv.CreatePoolItem(r.Context(), r.PathValue("id"), req.ClassName, req.Attributes, req.TemplateID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// MovePoolItem moves an object into a pool
func (h *InventoryHandler) MovePoolItem(w http.ResponseWriter, r *http.Request) {
	var req PoolTransferRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.inv.MovePoolItem(r.Context(), r.PathValue("id"), req.ClassName, req.ID); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CopyPoolItem copies an object into a pool
func (h *InventoryHandler) CopyPoolItem(w http.ResponseWriter, r *http.Request) {
	var req PoolTransferRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.inv.CopyPoolItem(r.Context(), r.PathValue("id"), req.ClassName, req.ID, req.Recursive)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// DeletePools deletes pools with their contents
func (h *InventoryHandler) DeletePools(w http.ResponseWriter, r *http.Request) {
	var req DeletePoolsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.inv.DeletePools(r.Context(), req.IDs, req.Release); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Templates

// ListTemplates returns the templates of ?class
func (h *InventoryHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.inv.Templates(r.Context(), r.URL.Query().Get("class"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if templates == nil {
		templates = []domain.Template{}
	}
	h.writeJSON(w, templates, http.StatusOK)
}

// CreateTemplate creates an empty template
func (h *InventoryHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.inv.CreateTemplate(r.Context(), req.ClassName, req.Name)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// CreateTemplateElement adds an element to a template
func (h *InventoryHandler) CreateTemplateElement(w http.ResponseWriter, r *http.Request) {
	var spec service.TemplateElementSpec
	if !h.decode(w, r, &spec) {
		return
	}
	id, err := h.inv.CreateTemplateElement(r.Context(), spec)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// GetTemplateElement returns a template element with its attributes
func (h *InventoryHandler) GetTemplateElement(w http.ResponseWriter, r *http.Request) {
	elem, err := h.inv.TemplateElement(r.Context(), r.PathValue("class"), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, elem, http.StatusOK)
}

// UpdateTemplateElement sets attribute values of a template element
func (h *InventoryHandler) UpdateTemplateElement(w http.ResponseWriter, r *http.Request) {
	var attrs map[string]string
	if !h.decode(w, r, &attrs) {
		return
	}
	if err := h.inv.UpdateTemplateElement(r.Context(), r.PathValue("class"), r.PathValue("id"), attrs); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTemplateElement deletes a template element and its subtree
func (h *InventoryHandler) DeleteTemplateElement(w http.ResponseWriter, r *http.Request) {
	if err := h.inv.DeleteTemplateElement(r.Context(), r.PathValue("class"), r.PathValue("id")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTemplateElementChildren returns the elements under a template element
func (h *InventoryHandler) GetTemplateElementChildren(w http.ResponseWriter, r *http.Request) {
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.TemplateElementChildren(r.Context(), r.PathValue("class"), r.PathValue("id"))
	})
}

// RelateTemplateElements relates two elements of the same template
func (h *InventoryHandler) RelateTemplateElements(w http.ResponseWriter, r *http.Request) {
	var req TemplateRelationshipRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.inv.RelateTemplateElements(r.Context(), req.AID, req.BID, req.Name); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloneTemplate instantiates a template as a detached object tree
func (h *InventoryHandler) CloneTemplate(w http.ResponseWriter, r *http.Request) {
	recursive, err := queryBool(r, "recursive")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	id, mapping, err := h.inv.CloneTemplate(r.Context(), r.PathValue("id"), recursive)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, CloneResponse{ID: id, Mapping: mapping}, http.StatusCreated)
}
