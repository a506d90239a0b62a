package httpapi

import (
	"net/http"
	"strings"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/service"

	"go.uber.org/zap"
)

const packagesPrefix = "/api/packages/"

// PackagesHandler catalog and stock endpoints
type PackagesHandler struct {
	inventory *service.InventoryService
	logger    *zap.Logger
}

func NewPackagesHandler(inventory *service.InventoryService, logger *zap.Logger) *PackagesHandler {
	return &PackagesHandler{inventory: inventory, logger: logger}
}

func (h *PackagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/packages/available":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Available(w, r)
	case strings.HasSuffix(path, "/restock"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Restock)(w, r)
	case strings.HasSuffix(path, "/allocate"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		requireStaff(h.Allocate)(w, r)
	default:
		switch r.Method {
		case http.MethodGet:
			requireStaff(h.Get)(w, r)
		case http.MethodPatch:
			requireStaff(h.Update)(w, r)
		default:
			methodNotAllowed(w)
		}
	}
}

// Collection GET and POST /api/packages
func (h *PackagesHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		methodNotAllowed(w)
	}
}

// Available GET /api/packages/available
func (h *PackagesHandler) Available(w http.ResponseWriter, r *http.Request) {
	views, err := h.inventory.ListAvailable(r.Context())
	if err != nil {
		writeError(w, h.logger, "ListAvailablePackages", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", views))
}

// List GET /api/packages
func (h *PackagesHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.inventory.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, "ListPackages", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", views))
}

// Create POST /api/packages
func (h *PackagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.PackageRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	view, err := h.inventory.Create(r.Context(), req, currentStaff(r).Label())
	if err != nil {
		writeError(w, h.logger, "CreatePackage", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok("Package created.", view))
}

// Get GET /api/packages/{id}
func (h *PackagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := packageID(r.URL.Path)
	if !ok {
		notFound(w)
		return
	}
	view, err := h.inventory.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetPackage", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("", view))
}

// Update PATCH /api/packages/{id} {name, description, cash_amount, items, is_active}
func (h *PackagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := packageID(r.URL.Path)
	if !ok {
		notFound(w)
		return
	}
	var upd domain.PackageUpdate
	if err := readBodyJSON(r, maxBodyBytes, &upd); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	view, err := h.inventory.Update(r.Context(), id, upd, currentStaff(r).Label())
	if err != nil {
		writeError(w, h.logger, "UpdatePackage", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("Package updated.", view))
}

func packageID(path string) (int64, bool) {
	raw, ok := pathParam(path, packagesPrefix, "")
	if !ok {
		return 0, false
	}
	return parseID(raw)
}

type restockResult struct {
	Result[any]
	AvailableQuantity int `json:"available_quantity"`
}

// Restock POST /api/packages/{id}/restock {quantity}
func (h *PackagesHandler) Restock(w http.ResponseWriter, r *http.Request) {
	raw, ok := pathParam(r.URL.Path, packagesPrefix, "/restock")
	id, valid := parseID(raw)
	if !ok || !valid {
		notFound(w)
		return
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	available, err := h.inventory.Restock(r.Context(), id, payload.Quantity, currentStaff(r).Label())
	if err != nil {
		writeError(w, h.logger, "RestockPackage", err)
		return
	}
	writeJSON(w, http.StatusOK, restockResult{
		Result:            Result[any]{Success: true, Message: "Package restocked."},
		AvailableQuantity: available,
	})
}

type allocateResult struct {
	Result[any]
	Allocated bool `json:"allocated"`
}

// Allocate POST /api/packages/{id}/allocate
func (h *PackagesHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	raw, ok := pathParam(r.URL.Path, packagesPrefix, "/allocate")
	id, valid := parseID(raw)
	if !ok || !valid {
		notFound(w)
		return
	}
	allocated, err := h.inventory.Allocate(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "AllocatePackage", err)
		return
	}
	msg := "Package allocated."
	if !allocated {
		msg = "Package is out of stock."
	}
	writeJSON(w, http.StatusOK, allocateResult{
		Result:    Result[any]{Success: true, Message: msg},
		Allocated: allocated,
	})
}
