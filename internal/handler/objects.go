package handler

import (
	"net/http"

	"assetgraph/internal/domain"
	"assetgraph/internal/service"
)

// MoveRequest moves objects under a new parent
type MoveRequest struct {
	TargetClass string                `json:"target_class"`
	TargetID    string                `json:"target_id"`
	Objects     domain.ObjectsByClass `json:"objects"`
	Special     bool                  `json:"special,omitempty"`
}

// CopyRequest copies objects under a new parent
type CopyRequest struct {
	MoveRequest
	Recursive bool `json:"recursive,omitempty"`
}

// DeleteRequest deletes a batch of objects
type DeleteRequest struct {
	Objects domain.ObjectsByClass `json:"objects"`
	Release bool                  `json:"release,omitempty"`
}

// ReleaseRequest removes special relationships of an object. The dummy
// root id as OtherID releases every relationship with that name.
type ReleaseRequest struct {
	Class   string `json:"class,omitempty"`
	ID      string `json:"id"`
	OtherID string `json:"other_id"`
	Name    string `json:"name"`
}

// IDsResponse is returned after creating several entities
type IDsResponse struct {
	IDs []string `json:"ids"`
}

// CreateObject creates a business object
func (h *InventoryHandler) CreateObject(w http.ResponseWriter, r *http.Request) {
	var spec service.ObjectSpec
	if !h.decode(w, r, &spec) {
		return
	}
	id, err := h.inv.CreateObject(r.Context(), spec)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// CreateObjects creates sibling objects named from a pattern
func (h *InventoryHandler) CreateObjects(w http.ResponseWriter, r *http.Request) {
	var spec service.BulkSpec
	if !h.decode(w, r, &spec) {
		return
	}
	ids, err := h.inv.CreateObjects(r.Context(), spec)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDsResponse{IDs: ids}, http.StatusCreated)
}

// ListObjects returns the instances of a class and its subclasses
func (h *InventoryHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	objs, err := h.inv.ObjectsOfClass(r.Context(), r.PathValue("class"), page)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, objs, http.StatusOK)
}

// GetObject returns an object with its attributes, or only its summary
// when ?light is set
func (h *InventoryHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	light, err := queryBool(r, "light")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if light {
		obj, err := h.inv.ObjectLight(r.Context(), pathClass(r), r.PathValue("id"))
		if err != nil {
			h.writeFailure(w, r, err)
			return
		}
		h.writeJSON(w, obj, http.StatusOK)
		return
	}

	obj, err := h.inv.Object(r.Context(), pathClass(r), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, obj, http.StatusOK)
}

// UpdateObject sets attribute values of an object
func (h *InventoryHandler) UpdateObject(w http.ResponseWriter, r *http.Request) {
	var attrs map[string]string
	if !h.decode(w, r, &attrs) {
		return
	}
	changes, err := h.inv.UpdateObject(r.Context(), r.PathValue("class"), r.PathValue("id"), attrs)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, changes, http.StatusOK)
}

// DeleteObject deletes one object and its subtree
func (h *InventoryHandler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	release, err := queryBool(r, "release")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	objs := domain.ObjectsByClass{r.PathValue("class"): {r.PathValue("id")}}
	if err := h.inv.DeleteObjects(r.Context(), objs, release); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteObjects deletes a batch of objects atomically
func (h *InventoryHandler) DeleteObjects(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.inv.DeleteObjects(r.Context(), req.Objects, req.Release); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CanDeleteObject reports whether an object is free of blocking
// relationships
func (h *InventoryHandler) CanDeleteObject(w http.ResponseWriter, r *http.Request) {
	ok, err := h.inv.CanDeleteObject(r.Context(), pathClass(r), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, map[string]bool{"can_delete": ok}, http.StatusOK)
}

// MoveObjects moves objects under a new parent
func (h *InventoryHandler) MoveObjects(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.inv.MoveObjects(r.Context(), req.TargetClass, req.TargetID, req.Objects, req.Special); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CopyObjects copies objects under a new parent
func (h *InventoryHandler) CopyObjects(w http.ResponseWriter, r *http.Request) {
	var req CopyRequest
	if !h.decode(w, r, &req) {
		return
	}
	ids, err := h.inv.CopyObjects(r.Context(), req.TargetClass, req.TargetID, req.Objects, req.Recursive, req.Special)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDsResponse{IDs: ids}, http.StatusCreated)
}

// Navigation

// GetParent returns the direct parent of an object
func (h *InventoryHandler) GetParent(w http.ResponseWriter, r *http.Request) {
	parent, err := h.inv.Parent(r.Context(), pathClass(r), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, parent, http.StatusOK)
}

// GetParents returns the ancestors of an object up to the dummy root
func (h *InventoryHandler) GetParents(w http.ResponseWriter, r *http.Request) {
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.Parents(r.Context(), pathClass(r), r.PathValue("id"))
	})
}

// GetChildren returns the direct children of an object, optionally only
// those of ?class
func (h *InventoryHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.Children(r.Context(), pathClass(r), r.PathValue("id"), r.URL.Query().Get("class"), page)
	})
}

// GetSpecialChildren returns the special children of an object
func (h *InventoryHandler) GetSpecialChildren(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.SpecialChildren(r.Context(), pathClass(r), r.PathValue("id"), page)
	})
}

// GetSpecialParents returns the special parents of an object
func (h *InventoryHandler) GetSpecialParents(w http.ResponseWriter, r *http.Request) {
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.SpecialParents(r.Context(), pathClass(r), r.PathValue("id"))
	})
}

// GetSiblings returns the other children of the object's parent
func (h *InventoryHandler) GetSiblings(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.Siblings(r.Context(), pathClass(r), r.PathValue("id"), page)
	})
}

func (h *InventoryHandler) respondLights(w http.ResponseWriter, r *http.Request, fn func() ([]domain.BusinessObjectLight, error)) {
	objs, err := fn()
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if objs == nil {
		objs = []domain.BusinessObjectLight{}
	}
	h.writeJSON(w, objs, http.StatusOK)
}

// Special relationships

// GetRelationships returns every special relationship of an object
func (h *InventoryHandler) GetRelationships(w http.ResponseWriter, r *http.Request) {
	rels, err := h.inv.SpecialRelationships(r.Context(), pathClass(r), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if rels == nil {
		rels = []domain.SpecialRelationship{}
	}
	h.writeJSON(w, rels, http.StatusOK)
}

// GetRelated returns the objects joined to an object through one named
// relationship
func (h *InventoryHandler) GetRelated(w http.ResponseWriter, r *http.Request) {
	h.respondLights(w, r, func() ([]domain.BusinessObjectLight, error) {
		return h.inv.SpecialAttribute(r.Context(), pathClass(r), r.PathValue("id"), r.PathValue("name"))
	})
}

// CreateRelationship relates two objects
func (h *InventoryHandler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var spec service.RelationshipSpec
	if !h.decode(w, r, &spec) {
		return
	}
	id, err := h.inv.CreateSpecialRelationship(r.Context(), spec)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, IDResponse{ID: id}, http.StatusCreated)
}

// ReleaseRelationship removes special relationships between two objects
func (h *InventoryHandler) ReleaseRelationship(w http.ResponseWriter, r *http.Request) {
	var req ReleaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.inv.ReleaseSpecialRelationship(r.Context(), req.Class, req.ID, req.OtherID, req.Name); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FindRoutes returns the simple paths between ?a_id and ?b_id through the
// relationship ?name, shortest first
func (h *InventoryHandler) FindRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	for _, field := range []string{"a_id", "b_id", "name"} {
		if err := requireField(field, q.Get(field)); err != nil {
			h.writeFailure(w, r, err)
			return
		}
	}
	routes, err := h.inv.FindRoutes(r.Context(), q.Get("a_class"), q.Get("a_id"), q.Get("b_class"), q.Get("b_id"), q.Get("name"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if routes == nil {
		routes = [][]domain.BusinessObjectLight{}
	}
	h.writeJSON(w, routes, http.StatusOK)
}

// AttachProcess links an object to a process instance
func (h *InventoryHandler) AttachProcess(w http.ResponseWriter, r *http.Request) {
	if err := h.inv.AttachProcessInstance(r.Context(), pathClass(r), r.PathValue("id"), r.PathValue("process")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DetachProcess unlinks an object from a process instance
func (h *InventoryHandler) DetachProcess(w http.ResponseWriter, r *http.Request) {
	if err := h.inv.DetachProcessInstance(r.Context(), pathClass(r), r.PathValue("id"), r.PathValue("process")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
