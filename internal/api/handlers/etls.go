// etls.go — обработчик /api/etls.
package handlers

import "net/http"

type etlItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"nombre"`
	Description string `json:"descripcion"`
	Kind        string  `json:"tipo"`
}

// ListETLs — GET /api/etls.
// Доступ: Administrador.
func (h *APIHandler) ListETLs(w http.ResponseWriter, r *http.Request) {
	etls, err := h.svc.ETLs.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "list_etls", err)
		return
	}

	items := make([]etlItem, len(etls))
	for i, e := range etls {
		items[i] = etlItem{ID: e.ID, Name: e.Name, Description: e.Description, Kind: e.Kind}
	}
	writeJSON(w, http.StatusOK, items)
}
