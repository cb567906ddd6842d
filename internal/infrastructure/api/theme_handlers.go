package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"shopify-integration-layer/internal/application"
	"shopify-integration-layer/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const multipartMemory = 8 << 20

// themeHandlers serves the theme listing and patch pipeline routes
type themeHandlers struct {
	shop   *application.ShopService
	themes *application.ThemeService
	logger zerolog.Logger
}

type updateThemeRequest struct {
	FilePath     string `json:"filePath"`
	JSONFilePath string `json:"jsonFilePath"`
	SectionKey   string `json:"sectionKey"`
	Field        string `json:"field"`
	NewValue     any    `json:"newValue"`
}

type submitThemeRequest struct {
	ExtractPath string `json:"extractPath"`
	ThemeName   string `json:"themeName"`
	ThemeRole   string `json:"themeRole"`
}

type workspaceResponse struct {
	Workspace  *domain.Workspace `json:"workspace"`
	SectionKey string            `json:"sectionKey"`
}

func (h *themeHandlers) list(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	themes, err := h.shop.ListThemes(r.Context(), store)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "", themes)
}

func (h *themeHandlers) publish(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	theme, err := h.shop.PublishTheme(r.Context(), store, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "Theme published successfully", theme)
}

func (h *themeHandlers) updateLocally(w http.ResponseWriter, r *http.Request, _ *domain.Store) {
	var req updateThemeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if req.FilePath == "" || req.SectionKey == "" || req.Field == "" {
		WriteError(w, domain.NewClientError("filePath, sectionKey and field are required"), h.logger)
		return
	}

	ws, key, err := h.themes.UpdateLocally(r.Context(), req.FilePath, domain.SectionPatch{
		JSONPath:   req.JSONFilePath,
		SectionKey: req.SectionKey,
		Field:      req.Field,
		Value:      req.NewValue,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "Theme updated locally", workspaceResponse{Workspace: ws, SectionKey: key})
}

func (h *themeHandlers) submit(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	var req submitThemeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	role, err := domain.ParseThemeRole(req.ThemeRole)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	ws, err := h.themes.WorkspaceFor(req.ExtractPath, req.ThemeName)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	theme, err := h.themes.Finalize(r.Context(), store, ws, req.ThemeName, role)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := h.themes.Cleanup(ws); err != nil {
		h.logger.Warn().Err(err).Str("workspace", ws.Root).Msg("Failed to clean up theme workspace")
	}
	WriteSuccess(w, http.StatusCreated, "Theme uploaded successfully", theme)
}

func (h *themeHandlers) uploadFile(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	file, header, err := formFile(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	defer file.Close()

	uploaded, err := h.themes.UploadImage(r.Context(), store, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusCreated, "File uploaded successfully", uploaded)
}

func (h *themeHandlers) updateImage(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	file, header, err := formFile(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	defer file.Close()

	source := r.FormValue("filePath")
	if source == "" {
		WriteError(w, domain.NewClientError("filePath is required"), h.logger)
		return
	}

	result, err := h.themes.UploadAndPatchImage(r.Context(), store, header.Filename, header.Header.Get("Content-Type"), file, source, domain.SectionPatch{
		JSONPath:   r.FormValue("jsonFilePath"),
		SectionKey: r.FormValue("sectionKey"),
		Field:      r.FormValue("field"),
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "Image uploaded and theme updated", result)
}

func (h *themeHandlers) deleteWorkspace(w http.ResponseWriter, r *http.Request, _ *domain.Store) {
	ws, err := h.themes.WorkspaceFor(r.URL.Query().Get("extractPath"), "")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if err := h.themes.Cleanup(ws); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "Workspace removed", nil)
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		return nil, nil, domain.NewClientError("expected a multipart/form-data body")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, domain.NewClientError("file is required")
	}
	return file, header, nil
}
