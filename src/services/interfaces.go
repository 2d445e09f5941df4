package services

import (
	"context"

	"github.com/username/tradefolio/backend/src/imports"
	"github.com/username/tradefolio/backend/src/models"
)

// PreviewTrade is a normalized candidate annotated against persisted
// history. AlreadyExists is advisory: commit recomputes it server-side.
type PreviewTrade struct {
	imports.NormalizedTrade
	AlreadyExists bool `json:"alreadyExists"`
}

// PreviewResult is the read-only dry-run report returned to the caller.
type PreviewResult struct {
	Trades         []PreviewTrade         `json:"trades"`
	Skipped        []imports.SkippedRow   `json:"skipped"`
	HeaderMapping  imports.HeaderMapping  `json:"headerMapping"`
	UnknownHeaders []string               `json:"unknownHeaders"`
	Warnings       []string               `json:"warnings"`
}

// CommitResult reports what a commit actually did. Skipped is always
// len(candidates) - Inserted; Duplicates counts the rows excluded by the
// fingerprint check specifically.
type CommitResult struct {
	Inserted   int `json:"inserted"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// ImportService is the two-phase import workflow: Preview is always safe
// to retry or discard, Commit is the sole mutating operation and is
// idempotent per fingerprint.
type ImportService interface {
	Preview(ctx context.Context, userID int64, accountID, csvText string, opts imports.Options) (*PreviewResult, error)
	Commit(ctx context.Context, userID int64, accountID string, candidates []imports.NormalizedTrade) (*CommitResult, error)
	LatestPreview(userID int64) (*PreviewResult, bool)
	RecordImportFile(ctx context.Context, file *models.ImportFile) error
	ListImportFiles(ctx context.Context, userID int64) ([]models.ImportFile, error)
}
