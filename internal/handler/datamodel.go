package handler

import (
	"bytes"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"assetgraph/internal/codec"
	"assetgraph/internal/domain"
)

// maxDataModelSize bounds an uploaded data model document
const maxDataModelSize = 8 << 20

// ExportDataModel writes the live schema as a data model document in
// ?format (yaml by default)
func (h *InventoryHandler) ExportDataModel(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "yaml"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		h.writeFailure(w, r, domain.InvalidArgumentf("%v", err))
		return
	}

	model, err := h.inv.ExportDataModel(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	// Encode first so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := c.Export(model, &buf); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	contentType := "application/x-yaml"
	if c.Format() == "json" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=datamodel."+c.Format())
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write data model", zap.Error(err))
	}
}

// ImportDataModel applies an uploaded data model document. The format
// comes from ?format or else the Content-Type header.
func (h *InventoryHandler) ImportDataModel(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
		if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
			format = "yaml"
		}
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		h.writeFailure(w, r, domain.InvalidArgumentf("%v", err))
		return
	}

	model, err := c.Parse(http.MaxBytesReader(w, r.Body, maxDataModelSize))
	if err != nil {
		h.writeError(w, "Invalid data model", err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.inv.ImportDataModel(r.Context(), model)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}
