package handlers

import (
	"context"

	"github.com/press141-netizen/reflex/dto"
	"github.com/press141-netizen/reflex/model"
)

type BoardServiceInterface interface {
	LoadBoard(ctx context.Context, boardID string) (*dto.BoardResponse, error)
	AddReference(ctx context.Context, boardID string, reference model.Reference) (model.Reference, error)
	UpdateReference(ctx context.Context, boardID string, reference model.Reference) error
	RemoveReference(ctx context.Context, boardID string, referenceID int64) error
	SetCategories(ctx context.Context, boardID string, customCategories map[string]interface{}) error
}

type FigmaServiceInterface interface {
	Generate(ctx context.Context, req dto.AnalyzeRequest) (string, error)
}

type UploadServiceInterface interface {
	Store(ctx context.Context, image, contentType string) (*dto.UploadResult, error)
}
