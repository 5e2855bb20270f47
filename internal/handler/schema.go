package handler

import (
	"net/http"

	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
)

// RulesRequest adds or removes possible children of a parent class. An
// empty parent addresses the dummy root.
type RulesRequest struct {
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
	Special  bool     `json:"special,omitempty"`
}

// ListClasses returns every class, optionally including list types
func (h *InventoryHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	includeListTypes, err := queryBool(r, "include_list_types")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	classes, err := h.inv.Classes(r.Context(), includeListTypes)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, classes, http.StatusOK)
}

// CreateClass creates a class
func (h *InventoryHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var def domain.ClassDefinition
	if !h.decode(w, r, &def) {
		return
	}
	id, err := h.inv.CreateClass(r.Context(), def)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// GetClass returns the resolved definition of a class
func (h *InventoryHandler) GetClass(w http.ResponseWriter, r *http.Request) {
	def, err := h.inv.Class(r.Context(), r.PathValue("class"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, def, http.StatusOK)
}

// UpdateClass applies a partial update to a class
func (h *InventoryHandler) UpdateClass(w http.ResponseWriter, r *http.Request) {
	var patch domain.ClassPatch
	if !h.decode(w, r, &patch) {
		return
	}
	changes, err := h.inv.SetClassProperties(r.Context(), r.PathValue("class"), patch)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, changes, http.StatusOK)
}

// DeleteClass deletes a class along with its subclasses and instances
func (h *InventoryHandler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	if err := h.inv.DeleteClass(r.Context(), r.PathValue("class")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubClasses returns the subclasses of a class
func (h *InventoryHandler) ListSubClasses(w http.ResponseWriter, r *http.Request) {
	flags, err := queryBools(r, "include_abstract", "include_self", "recursive")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	classes, err := h.inv.SubClasses(r.Context(), r.PathValue("class"), metadata.SubClassOptions{
		IncludeAbstract: flags[0],
		IncludeSelf:     flags[1],
		Recursive:       flags[2],
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, classes, http.StatusOK)
}

// GetClassHierarchy returns the ancestors of a class
func (h *InventoryHandler) GetClassHierarchy(w http.ResponseWriter, r *http.Request) {
	includeSelf, err := queryBool(r, "include_self")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	classes, err := h.inv.UpstreamClassHierarchy(r.Context(), r.PathValue("class"), includeSelf)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, classes, http.StatusOK)
}

// GetContainmentHierarchy returns the classes that may contain a class
func (h *InventoryHandler) GetContainmentHierarchy(w http.ResponseWriter, r *http.Request) {
	recursive, err := queryBool(r, "recursive")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	classes, err := h.inv.UpstreamContainmentHierarchy(r.Context(), r.PathValue("class"), recursive)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, classes, http.StatusOK)
}

// CreateAttribute adds an attribute to a class
func (h *InventoryHandler) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	var attr domain.AttributeDefinition
	if !h.decode(w, r, &attr) {
		return
	}
	id, err := h.inv.CreateAttribute(r.Context(), r.PathValue("class"), attr)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// UpdateAttribute applies a partial update to an attribute
func (h *InventoryHandler) UpdateAttribute(w http.ResponseWriter, r *http.Request) {
	var patch domain.AttributePatch
	if !h.decode(w, r, &patch) {
		return
	}
	changes, err := h.inv.SetAttributeProperties(r.Context(), r.PathValue("class"), r.PathValue("attribute"), patch)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, changes, http.StatusOK)
}

// DeleteAttribute removes an attribute from a class and its subclasses
func (h *InventoryHandler) DeleteAttribute(w http.ResponseWriter, r *http.Request) {
	if err := h.inv.DeleteAttribute(r.Context(), r.PathValue("class"), r.PathValue("attribute")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPossibleChildren returns the classes allowed under ?parent
func (h *InventoryHandler) ListPossibleChildren(w http.ResponseWriter, r *http.Request) {
	flags, err := queryBools(r, "special", "recursive")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	classes, err := h.inv.PossibleChildren(r.Context(), r.URL.Query().Get("parent"), flags[0], flags[1])
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if classes == nil {
		classes = []domain.ClassDefinitionLight{}
	}
	h.writeJSON(w, classes, http.StatusOK)
}

// AddPossibleChildren extends the containment rules of a parent class
func (h *InventoryHandler) AddPossibleChildren(w http.ResponseWriter, r *http.Request) {
	var req RulesRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.inv.AddPossibleChildren(r.Context(), req.Parent, req.Children, req.Special); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemovePossibleChildren narrows the containment rules of a parent class
func (h *InventoryHandler) RemovePossibleChildren(w http.ResponseWriter, r *http.Request) {
	var req RulesRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.inv.RemovePossibleChildren(r.Context(), req.Parent, req.Children, req.Special); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckContainment reports whether ?child may be placed under ?parent
func (h *InventoryHandler) CheckContainment(w http.ResponseWriter, r *http.Request) {
	special, err := queryBool(r, "special")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	child := r.URL.Query().Get("child")
	if err := requireField("child", child); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	allowed, err := h.inv.CanBeChild(r.Context(), r.URL.Query().Get("parent"), child, special)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, map[string]bool{"allowed": allowed}, http.StatusOK)
}
