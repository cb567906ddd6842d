package application

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/infrastructure/storage"
	"shopify-integration-layer/internal/ports"
	"shopify-integration-layer/internal/themefs"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ThemeServiceConfig locates the theme sources and scratch space
type ThemeServiceConfig struct {
	// WorkRoot holds extracted workspaces
	WorkRoot string
	// SourceRoot is the directory theme archive and folder paths are
	// resolved against
	SourceRoot        string
	ImagePollAttempts int
	ImagePollInterval time.Duration
}

// UploadedFile is a file hosted by the platform's Files API
type UploadedFile struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Reference string `json:"reference"`
}

// ImagePatchResult is the outcome of UploadAndPatchImage
type ImagePatchResult struct {
	Image      *UploadedFile     `json:"image"`
	Workspace  *domain.Workspace `json:"workspace"`
	SectionKey string            `json:"sectionKey"`
}

// ThemeService extracts themes, patches their settings and uploads the
// result back to the store
type ThemeService struct {
	shop    *ShopService
	graphql ports.GraphQLClient
	gateway ports.Gateway
	blobs   ports.BlobStorage
	cfg     ThemeServiceConfig
	logger  zerolog.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewThemeService creates a new theme application service
func NewThemeService(
	shop *ShopService,
	graphql ports.GraphQLClient,
	gateway ports.Gateway,
	blobs ports.BlobStorage,
	cfg ThemeServiceConfig,
	logger zerolog.Logger,
) *ThemeService {
	if cfg.ImagePollAttempts <= 0 {
		cfg.ImagePollAttempts = 10
	}
	if cfg.ImagePollInterval <= 0 {
		cfg.ImagePollInterval = time.Second
	}
	return &ThemeService{
		shop:    shop,
		graphql: graphql,
		gateway: gateway,
		blobs:   blobs,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Extract materializes a theme source into a new workspace. The source is
// a .zip path or a directory under SourceRoot, or an s3:// URI of a zip.
func (s *ThemeService) Extract(ctx context.Context, source string) (*domain.Workspace, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, domain.NewClientError("filePath is required")
	}

	name := themeName(source)
	root := filepath.Join(s.cfg.WorkRoot, fmt.Sprintf("%s_%s", name, uuid.NewString()))
	ws := &domain.Workspace{
		ThemeName:   name,
		Root:        root,
		ExtractPath: filepath.Join(root, "unzipped"),
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, domain.NewPipelineError("failed to create workspace", err)
	}

	if err := s.materialize(ctx, source, ws); err != nil {
		_ = os.RemoveAll(root)
		if _, ok := domain.AsError(err); ok {
			return nil, err
		}
		return nil, domain.NewPipelineError("failed to extract theme", err)
	}

	s.logger.Info().
		Str("source", source).
		Str("workspace", ws.Root).
		Msg("Theme extracted")
	return ws, nil
}

func (s *ThemeService) materialize(ctx context.Context, source string, ws *domain.Workspace) error {
	if _, key, ok := storage.ParseS3URI(source); ok {
		archive := filepath.Join(ws.Root, "source.zip")
		if err := s.download(ctx, key, archive); err != nil {
			return err
		}
		return themefs.Unzip(archive, ws.ExtractPath)
	}

	local, err := s.sourcePath(source)
	if err != nil {
		return err
	}
	info, err := os.Stat(local)
	if err != nil {
		return domain.NewPipelineError(fmt.Sprintf("theme source %q not found", source), err)
	}
	switch {
	case info.IsDir():
		return themefs.CopyDir(local, ws.ExtractPath)
	case strings.EqualFold(filepath.Ext(local), ".zip"):
		return themefs.Unzip(local, ws.ExtractPath)
	default:
		return domain.NewPipelineError("Theme file must be a .zip or directory", nil)
	}
}

func (s *ThemeService) download(ctx context.Context, key, dest string) error {
	rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to download theme archive: %w", err)
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("failed to download theme archive: %w", err)
	}
	return f.Close()
}

// Patch applies one settings change inside the workspace and returns the
// section key that matched
func (s *ThemeService) Patch(ctx context.Context, ws *domain.Workspace, patch domain.SectionPatch) (string, error) {
	if patch.SectionKey == "" || patch.Field == "" {
		return "", domain.NewClientError("sectionKey and field are required")
	}
	if patch.JSONPath == "" {
		patch.JSONPath = domain.DefaultSettingsFile
	}
	file, err := within(ws.ExtractPath, patch.JSONPath)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return "", domain.NewPipelineError(fmt.Sprintf("JSON file not found: %s", patch.JSONPath), err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", domain.NewPipelineError(fmt.Sprintf("invalid JSON in %s", patch.JSONPath), err)
	}

	key, err := domain.ApplySectionPatch(doc, patch)
	if err != nil {
		return "", domain.NewPipelineError("failed to patch theme settings", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", domain.NewPipelineError("failed to encode theme settings", err)
	}
	if err := os.WriteFile(file, out, 0o644); err != nil {
		return "", domain.NewPipelineError("failed to write theme settings", err)
	}

	s.logger.Info().
		Str("workspace", ws.Root).
		Str("file", patch.JSONPath).
		Str("section", key).
		Str("field", patch.Field).
		Msg("Theme settings updated")
	return key, nil
}

// UpdateLocally extracts source and applies patch. The workspace is kept
// for a later Finalize; it is removed when the patch fails.
func (s *ThemeService) UpdateLocally(ctx context.Context, source string, patch domain.SectionPatch) (*domain.Workspace, string, error) {
	ws, err := s.Extract(ctx, source)
	if err != nil {
		return nil, "", err
	}
	key, err := s.Patch(ctx, ws, patch)
	if err != nil {
		s.cleanupQuietly(ws)
		return nil, "", err
	}
	return ws, key, nil
}

// WorkspaceFor rebuilds a workspace handle from a previously returned
// extract path, refusing paths outside WorkRoot
func (s *ThemeService) WorkspaceFor(extractPath, name string) (*domain.Workspace, error) {
	if extractPath == "" {
		return nil, domain.NewClientError("extractPath is required")
	}
	abs, err := filepath.Abs(extractPath)
	if err != nil {
		return nil, domain.NewClientError("invalid extractPath")
	}
	workRoot, err := filepath.Abs(s.cfg.WorkRoot)
	if err != nil {
		return nil, domain.NewPipelineError("invalid workspace root", err)
	}
	rel, err := filepath.Rel(workRoot, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, domain.NewClientError("extractPath is outside the theme workspace")
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, domain.NewNotFoundError("workspace not found")
	}

	root := filepath.Join(workRoot, strings.Split(rel, string(filepath.Separator))[0])
	if name == "" {
		name = filepath.Base(root)
	}
	return &domain.Workspace{ThemeName: name, Root: root, ExtractPath: abs}, nil
}

// Finalize zips the workspace, publishes the archive to blob storage and
// registers it as a theme on the store
func (s *ThemeService) Finalize(ctx context.Context, store *domain.Store, ws *domain.Workspace, name string, role domain.ThemeRole) (json.RawMessage, error) {
	if name == "" {
		name = ws.ThemeName
	}

	archive, err := os.CreateTemp(ws.Root, "theme-*.zip")
	if err != nil {
		return nil, domain.NewPipelineError("failed to create theme archive", err)
	}
	defer os.Remove(archive.Name())
	defer archive.Close()

	if err := themefs.ZipDir(ws.ExtractPath, archive); err != nil {
		return nil, domain.NewPipelineError("failed to zip theme", err)
	}
	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return nil, domain.NewPipelineError("failed to read theme archive", err)
	}

	key := path.Join("themes", fmt.Sprintf("%s_%s.zip", safeName(name), uuid.NewString()))
	src, err := s.blobs.Put(ctx, key, archive, "application/zip")
	if err != nil {
		return nil, domain.NewPipelineError("failed to upload theme archive", err)
	}

	theme, err := s.shop.UploadTheme(ctx, store, ThemeUpload{Name: name, Src: src, Role: role})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("shop", store.Domain()).
		Str("theme", name).
		Str("role", string(role)).
		Str("src", src).
		Msg("Theme uploaded")
	return theme, nil
}

// Cleanup removes the workspace from disk
func (s *ThemeService) Cleanup(ws *domain.Workspace) error {
	if ws == nil || ws.Root == "" {
		return nil
	}
	if _, err := s.WorkspaceFor(ws.Root, ws.ThemeName); err != nil {
		return err
	}
	if err := os.RemoveAll(ws.Root); err != nil {
		return domain.NewPipelineError("failed to remove workspace", err)
	}
	return nil
}

func (s *ThemeService) cleanupQuietly(ws *domain.Workspace) {
	if err := os.RemoveAll(ws.Root); err != nil {
		s.logger.Warn().Err(err).Str("workspace", ws.Root).Msg("Failed to remove workspace")
	}
}

const fileCreateMutation = `mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files {
      id
      fileStatus
      ... on MediaImage { image { url } }
      ... on GenericFile { url }
    }
    userErrors { field message }
  }
}`

const fileNodeQuery = `query fileNode($id: ID!) {
  node(id: $id) {
    id
    ... on MediaImage { fileStatus image { url } }
    ... on GenericFile { fileStatus url }
  }
}`

type fileNode struct {
	ID         string `json:"id"`
	FileStatus string `json:"fileStatus"`
	URL        string `json:"url"`
	Image      *struct {
		URL string `json:"url"`
	} `json:"image"`
}

func (n *fileNode) publicURL() string {
	if n.Image != nil && n.Image.URL != "" {
		return n.Image.URL
	}
	return n.URL
}

// UploadImage stages the file in blob storage, hands it to the platform's
// Files API and waits until it is ready. The staged blob is always removed.
func (s *ThemeService) UploadImage(ctx context.Context, store *domain.Store, filename, contentType string, body io.Reader) (*UploadedFile, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, domain.NewClientError("file is required")
	}

	key := path.Join("interim", uuid.NewString(), filename)
	staged, err := s.blobs.Put(ctx, key, body, contentType)
	if err != nil {
		return nil, domain.NewPipelineError("failed to stage image", err)
	}
	defer func() {
		if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete staged image")
		}
	}()

	target := s.gateway.TargetFor(store)
	var created struct {
		FileCreate struct {
			Files      []fileNode `json:"files"`
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"fileCreate"`
	}
	err = s.graphql.Admin(ctx, target, fileCreateMutation, map[string]any{
		"files": []map[string]any{{
			"originalSource": staged,
			"contentType":    "IMAGE",
			"alt":            filename,
		}},
	}, &created)
	if err != nil {
		return nil, err
	}
	if len(created.FileCreate.UserErrors) > 0 {
		return nil, domain.NewUpstreamError(400, created.FileCreate.UserErrors[0].Message, created.FileCreate.UserErrors)
	}
	if len(created.FileCreate.Files) == 0 {
		return nil, domain.NewPipelineError("fileCreate returned no file", nil)
	}

	node, err := s.awaitReady(ctx, target, created.FileCreate.Files[0])
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("shop", store.Domain()).
		Str("fileId", node.ID).
		Str("filename", filename).
		Msg("Image uploaded to Shopify files")
	return &UploadedFile{
		ID:        node.ID,
		URL:       node.publicURL(),
		Reference: "shopify://shop_images/" + filename,
	}, nil
}

func (s *ThemeService) awaitReady(ctx context.Context, target domain.Target, file fileNode) (*fileNode, error) {
	node := &file
	for attempt := 0; ; attempt++ {
		switch node.FileStatus {
		case "READY":
			return node, nil
		case "FAILED":
			return nil, domain.NewPipelineError("Shopify failed to process the file", nil)
		}
		if attempt >= s.cfg.ImagePollAttempts {
			return nil, domain.NewPipelineError("timed out waiting for file to be ready", nil)
		}
		if err := s.sleep(ctx, s.cfg.ImagePollInterval); err != nil {
			return nil, err
		}

		var out struct {
			Node *fileNode `json:"node"`
		}
		if err := s.graphql.Admin(ctx, target, fileNodeQuery, map[string]any{"id": file.ID}, &out); err != nil {
			return nil, err
		}
		if out.Node == nil {
			return nil, domain.NewNotFoundError("uploaded file not found")
		}
		node = out.Node
	}
}

// UploadAndPatchImage uploads an image and writes its reference into a
// theme section of a fresh workspace
func (s *ThemeService) UploadAndPatchImage(ctx context.Context, store *domain.Store, filename, contentType string, body io.Reader, source string, patch domain.SectionPatch) (*ImagePatchResult, error) {
	if patch.SectionKey == "" || patch.Field == "" {
		return nil, domain.NewClientError("sectionKey and field are required")
	}
	image, err := s.UploadImage(ctx, store, filename, contentType, body)
	if err != nil {
		return nil, err
	}
	patch.Value = image.Reference
	ws, key, err := s.UpdateLocally(ctx, source, patch)
	if err != nil {
		return nil, err
	}
	return &ImagePatchResult{Image: image, Workspace: ws, SectionKey: key}, nil
}

func (s *ThemeService) sourcePath(source string) (string, error) {
	if filepath.IsAbs(source) {
		return "", domain.NewClientError("theme path must be relative to the theme source directory")
	}
	return within(s.cfg.SourceRoot, source)
}

// within joins rel onto root and rejects results that escape root
func within(root, rel string) (string, error) {
	full := filepath.Join(root, rel)
	r, err := filepath.Rel(root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", domain.NewClientError(fmt.Sprintf("path %q escapes its root", rel))
	}
	return full, nil
}

func themeName(source string) string {
	base := path.Base(strings.TrimRight(filepath.ToSlash(source), "/"))
	return safeName(strings.TrimSuffix(base, path.Ext(base)))
}

func safeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" {
		return "theme"
	}
	return name
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
