package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/press141-netizen/reflex/dto"
	"github.com/press141-netizen/reflex/model"
	"github.com/press141-netizen/reflex/shared"
)

// BoardService is CRUD over whole per-board JSON documents. Every mutation
// is read-modify-write without a version token: the KV contract offers no
// compare-and-set, so concurrent writers are last-write-wins over the full
// document.
type BoardService struct {
	appContext.DefaultService

	kvSvc *KVService
}

const BOARD_SVC = "board_svc"

func (svc BoardService) Id() string {
	return BOARD_SVC
}

func (svc *BoardService) Start() error {
	svc.kvSvc = svc.Service(KV_SVC).(*KVService)
	return nil
}

var boardIDPattern = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeBoardID strips the id to its allow-listed character set and caps
// its length. Empty input (or input that sanitizes away) becomes the public
// board.
func SanitizeBoardID(boardID string) string {
	boardID = boardIDPattern.ReplaceAllString(boardID, "")
	if len(boardID) > shared.MaxBoardIDLength {
		boardID = boardID[:shared.MaxBoardIDLength]
	}
	if boardID == "" {
		return shared.DefaultBoardID
	}
	return boardID
}

// BoardKey maps a sanitized board id to its storage key. The public board
// keeps the legacy key so data written by earlier deployments stays visible.
func BoardKey(boardID string) string {
	if boardID == shared.DefaultBoardID {
		return shared.LegacyPublicKey
	}
	return shared.BoardKeyPrefix + boardID
}

func (svc *BoardService) store() (KeyValueStore, error) {
	store := svc.kvSvc.Store()
	if store == nil {
		return nil, shared.NewConfigError("Storage not configured")
	}
	return store, nil
}

// fetch loads a board document. A missing value or one that no longer
// parses as JSON both count as absence; corrupted documents never surface
// as errors.
func (svc *BoardService) fetch(ctx context.Context, key string) (*model.Board, bool, error) {
	store, err := svc.store()
	if err != nil {
		return nil, false, err
	}

	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return model.NewBoard(), false, nil
	}

	var board model.Board
	if err := sonic.Unmarshal([]byte(raw), &board); err != nil {
		log.WithError(err).WithField("key", key).Warn("Stored board is not valid JSON, treating as absent")
		return model.NewBoard(), false, nil
	}

	if board.References == nil {
		board.References = []model.Reference{}
	}
	if board.CustomCategories == nil {
		board.CustomCategories = map[string]interface{}{}
	}

	return &board, true, nil
}

func (svc *BoardService) persist(ctx context.Context, key string, board *model.Board) error {
	store, err := svc.store()
	if err != nil {
		return err
	}

	if board.CreatedAt == "" {
		board.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := sonic.Marshal(board)
	if err != nil {
		return shared.NewInternalError(err)
	}

	return store.Set(ctx, key, string(data))
}

func (svc *BoardService) LoadBoard(ctx context.Context, boardID string) (*dto.BoardResponse, error) {
	boardID = SanitizeBoardID(boardID)

	board, _, err := svc.fetch(ctx, BoardKey(boardID))
	if err != nil {
		return nil, err
	}

	RecordBoardOperation("load")

	return &dto.BoardResponse{
		BoardID:          boardID,
		References:       board.References,
		CustomCategories: board.CustomCategories,
		CreatedAt:        board.CreatedAt,
	}, nil
}

// AddReference assigns a fresh id, prepends the record and persists the
// document. Ids are millisecond timestamps bumped past any duplicate inside
// the document; under concurrent writers to the same board they can still
// collide since there is no atomic counter in the storage contract.
func (svc *BoardService) AddReference(ctx context.Context, boardID string, reference model.Reference) (model.Reference, error) {
	if reference == nil {
		return nil, shared.NewBadRequestError(nil, "Reference data required")
	}

	encoded, err := sonic.Marshal(reference)
	if err != nil {
		return nil, shared.NewBadRequestError(err, "Reference is not serializable")
	}
	if len(encoded) > shared.MaxReferenceBytes {
		return nil, shared.NewBadRequestError(nil, fmt.Sprintf("Reference too large, maximum %d bytes", shared.MaxReferenceBytes))
	}

	key := BoardKey(SanitizeBoardID(boardID))

	board, _, err := svc.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	if len(board.References) >= shared.MaxReferencesPerBoard {
		return nil, shared.NewBadRequestError(nil, fmt.Sprintf("Board is full, maximum %d references", shared.MaxReferencesPerBoard))
	}

	id := time.Now().UnixMilli()
	for board.HasReference(id) {
		id++
	}

	reference["id"] = id
	reference["addedAt"] = time.Now().UTC().Format(time.RFC3339)

	board.References = append([]model.Reference{reference}, board.References...)

	if err := svc.persist(ctx, key, board); err != nil {
		return nil, err
	}

	RecordBoardOperation("add")
	return reference, nil
}

// UpdateReference replaces the whole record matching the reference id. No
// partial-field patch semantics.
func (svc *BoardService) UpdateReference(ctx context.Context, boardID string, reference model.Reference) error {
	id, ok := reference.ID()
	if !ok {
		return shared.NewBadRequestError(nil, "Reference with ID required")
	}

	key := BoardKey(SanitizeBoardID(boardID))

	board, found, err := svc.fetch(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return shared.NewNotFoundError("Board not found")
	}

	replaced := false
	for i, ref := range board.References {
		if refID, ok := ref.ID(); ok && refID == id {
			board.References[i] = reference
			replaced = true
			break
		}
	}
	if !replaced {
		return shared.NewNotFoundError("Reference not found")
	}

	if err := svc.persist(ctx, key, board); err != nil {
		return err
	}

	RecordBoardOperation("update")
	return nil
}

// RemoveReference filters out every record with the id. Removing an id that
// is already gone succeeds with no change.
func (svc *BoardService) RemoveReference(ctx context.Context, boardID string, referenceID int64) error {
	key := BoardKey(SanitizeBoardID(boardID))

	board, found, err := svc.fetch(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return shared.NewNotFoundError("Board not found")
	}

	kept := board.References[:0]
	for _, ref := range board.References {
		if refID, ok := ref.ID(); ok && refID == referenceID {
			continue
		}
		kept = append(kept, ref)
	}
	board.References = kept

	if err := svc.persist(ctx, key, board); err != nil {
		return err
	}

	RecordBoardOperation("remove")
	return nil
}

// SetCategories replaces the categories map wholesale, creating the
// document when absent.
func (svc *BoardService) SetCategories(ctx context.Context, boardID string, customCategories map[string]interface{}) error {
	if customCategories == nil {
		return shared.NewBadRequestError(nil, "No categories")
	}

	key := BoardKey(SanitizeBoardID(boardID))

	board, _, err := svc.fetch(ctx, key)
	if err != nil {
		return err
	}

	board.CustomCategories = customCategories

	if err := svc.persist(ctx, key, board); err != nil {
		return err
	}

	RecordBoardOperation("categories")
	return nil
}
