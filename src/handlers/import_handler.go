package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/username/tradefolio/backend/src/imports"
	"github.com/username/tradefolio/backend/src/logger"
	"github.com/username/tradefolio/backend/src/models"
	"github.com/username/tradefolio/backend/src/security/validation"
	"github.com/username/tradefolio/backend/src/services"
	"github.com/username/tradefolio/backend/src/utils"
)

type ImportHandler struct {
	importService  services.ImportService
	maxUploadBytes int64
	maxPreviewRows int
	maxCommitBatch int
}

func NewImportHandler(service services.ImportService, maxUploadBytes int64, maxPreviewRows, maxCommitBatch int) *ImportHandler {
	return &ImportHandler{
		importService:  service,
		maxUploadBytes: maxUploadBytes,
		maxPreviewRows: maxPreviewRows,
		maxCommitBatch: maxCommitBatch,
	}
}

type previewRequest struct {
	CSV              string `json:"csv"`
	Delimiter        string `json:"delimiter,omitempty"`
	DecimalSeparator string `json:"decimalSeparator,omitempty"`
	PreviewLimit     int    `json:"previewLimit,omitempty"`
	AccountID        string `json:"accountId"`
}

type commitRequest struct {
	AccountID string                    `json:"accountId"`
	Trades    []imports.NormalizedTrade `json:"trades"`
}

func (h *ImportHandler) parseOptions(delimiter, decimalSeparator string, previewLimit int) (imports.Options, error) {
	opts := imports.Options{}

	switch delimiter {
	case "", ",":
		opts.Delimiter = ','
	case "tab", "\t":
		opts.Delimiter = '\t'
	default:
		if utf8.RuneCountInString(delimiter) != 1 {
			return opts, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
		}
		r, _ := utf8.DecodeRuneInString(delimiter)
		opts.Delimiter = r
	}

	sep := imports.DecimalSeparator(decimalSeparator)
	if decimalSeparator != "" && !sep.Valid() {
		return opts, fmt.Errorf("decimalSeparator must be '.' or ',', got %q", decimalSeparator)
	}
	opts.DecimalSeparator = sep

	if previewLimit < 0 || previewLimit > h.maxPreviewRows {
		return opts, fmt.Errorf("previewLimit must be between 0 and %d", h.maxPreviewRows)
	}
	opts.PreviewLimit = previewLimit

	return opts, nil
}

func (h *ImportHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req previewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.CSV == "" {
		utils.SendJSONError(w, "CSV content is required", http.StatusUnprocessableEntity)
		return
	}
	if req.AccountID == "" {
		utils.SendJSONError(w, "accountId is required", http.StatusUnprocessableEntity)
		return
	}

	opts, err := h.parseOptions(req.Delimiter, req.DecimalSeparator, req.PreviewLimit)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	result, err := h.importService.Preview(r.Context(), userID, req.AccountID, req.CSV, opts)
	if err != nil {
		h.sendServiceError(w, userID, err)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

// HandleUpload is the multipart variant of preview: the CSV arrives as an
// uploaded file, is content-validated, previewed, and recorded in the
// user's import log.
func (h *ImportHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", h.maxUploadBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadBytes {
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", h.maxUploadBytes/(1024*1024)), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		logger.L.Warn("Upload rejected by content validation", "userID", userID, "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		utils.SendJSONError(w, "Failed to read uploaded file", http.StatusBadRequest)
		return
	}

	accountID := r.FormValue("accountId")
	if accountID == "" {
		utils.SendJSONError(w, "accountId form field is required", http.StatusUnprocessableEntity)
		return
	}
	previewLimit := 0
	if v := r.FormValue("previewLimit"); v != "" {
		previewLimit, err = strconv.Atoi(v)
		if err != nil {
			utils.SendJSONError(w, "previewLimit must be an integer", http.StatusUnprocessableEntity)
			return
		}
	}
	opts, err := h.parseOptions(r.FormValue("delimiter"), r.FormValue("decimalSeparator"), previewLimit)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	logger.L.Info("Processing upload request", "userID", userID, "filename", fileHeader.Filename)
	result, err := h.importService.Preview(r.Context(), userID, accountID, string(content), opts)
	if err != nil {
		h.sendServiceError(w, userID, err)
		return
	}

	record := &models.ImportFile{
		ID:        uuid.NewString(),
		UserID:    userID,
		AccountID: accountID,
		Filename:  fileHeader.Filename,
		Hash:      utils.HashContent(content),
		RowCount:  len(result.Trades) + len(result.Skipped),
	}
	if err := h.importService.RecordImportFile(r.Context(), record); err != nil {
		// Preview already succeeded; the log entry is best-effort.
		logger.L.Error("Failed to record import file", "userID", userID, "filename", fileHeader.Filename, "error", err)
	}

	utils.SendJSON(w, result, http.StatusOK)
}

func (h *ImportHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req commitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" {
		utils.SendJSONError(w, "accountId is required", http.StatusUnprocessableEntity)
		return
	}
	if len(req.Trades) == 0 {
		utils.SendJSONError(w, "trades must contain at least one trade", http.StatusUnprocessableEntity)
		return
	}
	if len(req.Trades) > h.maxCommitBatch {
		utils.SendJSONError(w, fmt.Sprintf("trades exceeds the maximum commit batch of %d", h.maxCommitBatch), http.StatusUnprocessableEntity)
		return
	}

	result, err := h.importService.Commit(r.Context(), userID, req.AccountID, req.Trades)
	if err != nil {
		h.sendServiceError(w, userID, err)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

func (h *ImportHandler) HandleLatestPreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	result, found := h.importService.LatestPreview(userID)
	if !found {
		utils.SendJSONError(w, "no recent preview for this user", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

func (h *ImportHandler) HandleListImports(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	files, err := h.importService.ListImportFiles(r.Context(), userID)
	if err != nil {
		logger.L.Error("Error listing import files", "userID", userID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while listing imports.", http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []models.ImportFile{}
	}
	utils.SendJSON(w, map[string]any{"data": files}, http.StatusOK)
}

func (h *ImportHandler) sendServiceError(w http.ResponseWriter, userID int64, err error) {
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		utils.SendJSONError(w, "Account not found", http.StatusNotFound)
	case errors.Is(err, services.ErrParsingFailed):
		logger.L.Warn("Import failed due to CSV parsing errors", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV file: %v", err), http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidTrade):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.L.Error("Internal error processing import", "userID", userID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while processing the import. Please try again later.", http.StatusInternalServerError)
	}
}
