package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"

	"github.com/press141-netizen/reflex/dto"
	"github.com/press141-netizen/reflex/model"
	"github.com/press141-netizen/reflex/shared"
)

type fakeBoardService struct {
	board     *dto.BoardResponse
	gotBoard  string
	gotRef    model.Reference
	gotRefID  int64
	gotCats   map[string]interface{}
	returnErr error
}

func (f *fakeBoardService) LoadBoard(_ context.Context, boardID string) (*dto.BoardResponse, error) {
	f.gotBoard = boardID
	return f.board, f.returnErr
}

func (f *fakeBoardService) AddReference(_ context.Context, boardID string, reference model.Reference) (model.Reference, error) {
	f.gotBoard = boardID
	f.gotRef = reference
	if f.returnErr != nil {
		return nil, f.returnErr
	}
	reference["id"] = int64(1700000000000)
	return reference, nil
}

func (f *fakeBoardService) UpdateReference(_ context.Context, boardID string, reference model.Reference) error {
	f.gotBoard = boardID
	f.gotRef = reference
	return f.returnErr
}

func (f *fakeBoardService) RemoveReference(_ context.Context, boardID string, referenceID int64) error {
	f.gotBoard = boardID
	f.gotRefID = referenceID
	return f.returnErr
}

func (f *fakeBoardService) SetCategories(_ context.Context, boardID string, customCategories map[string]interface{}) error {
	f.gotBoard = boardID
	f.gotCats = customCategories
	return f.returnErr
}

type fakeFigmaService struct {
	gotReq    dto.AnalyzeRequest
	code      string
	returnErr error
}

func (f *fakeFigmaService) Generate(_ context.Context, req dto.AnalyzeRequest) (string, error) {
	f.gotReq = req
	return f.code, f.returnErr
}

type fakeUploadService struct {
	result    *dto.UploadResult
	returnErr error
}

func (f *fakeUploadService) Store(_ context.Context, image, contentType string) (*dto.UploadResult, error) {
	return f.result, f.returnErr
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		JSONEncoder: shared.JSONMarshal,
		JSONDecoder: shared.JSONUnmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := shared.GetAppError(err); ok {
				return c.Status(appErr.StatusCode).JSON(fiber.Map{"error": appErr.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		},
	})
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	resp.Body.Close()

	return resp, respBody
}

func TestGetBoard(t *testing.T) {
	svc := &fakeBoardService{
		board: &dto.BoardResponse{
			BoardID:          "team-a",
			References:       []model.Reference{{"id": float64(1), "title": "hero"}},
			CustomCategories: map[string]interface{}{"buttons": []interface{}{}},
		},
	}

	app := newTestApp()
	app.Get("/boards", NewBoardHandler(svc).GetBoard)

	resp, body := doJSON(t, app, fiber.MethodGet, "/boards?boardId=team-a", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got dto.BoardResponse
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if got.BoardID != "team-a" || len(got.References) != 1 {
		t.Errorf("response = %+v", got)
	}

	if svc.gotBoard != "team-a" {
		t.Errorf("board id passed to service = %q, want team-a", svc.gotBoard)
	}
}

func TestAddReference(t *testing.T) {
	svc := &fakeBoardService{}

	app := newTestApp()
	app.Post("/boards", NewBoardHandler(svc).AddReference)

	resp, body := doJSON(t, app, fiber.MethodPost, "/boards", dto.AddReferenceRequest{
		Reference: model.Reference{"title": "pricing card", "image": "data:image/png;base64,aGk="},
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var got dto.ReferenceResponse
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if !got.Success {
		t.Error("success = false, want true")
	}
	if _, ok := got.Reference.ID(); !ok {
		t.Error("response reference should carry the assigned id")
	}

	if svc.gotRef["title"] != "pricing card" {
		t.Errorf("reference passed to service = %v", svc.gotRef)
	}
}

func TestAddReferenceMissingReference(t *testing.T) {
	svc := &fakeBoardService{}

	app := newTestApp()
	app.Post("/boards", NewBoardHandler(svc).AddReference)

	resp, body := doJSON(t, app, fiber.MethodPost, "/boards", map[string]interface{}{})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var got dto.ValidationErrorResponse
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if got.Error != "Validation failed" {
		t.Errorf("error = %q, want %q", got.Error, "Validation failed")
	}
}

func TestAddReferenceServiceError(t *testing.T) {
	svc := &fakeBoardService{returnErr: shared.NewConfigError("Storage not configured")}

	app := newTestApp()
	app.Post("/boards", NewBoardHandler(svc).AddReference)

	resp, body := doJSON(t, app, fiber.MethodPost, "/boards", dto.AddReferenceRequest{
		Reference: model.Reference{"title": "x"},
	})
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	var got map[string]interface{}
	sonic.Unmarshal(body, &got)
	if got["error"] != "Storage not configured" {
		t.Errorf("error = %v", got["error"])
	}
}

func TestUpdateReferenceNotFoundPropagates(t *testing.T) {
	svc := &fakeBoardService{returnErr: shared.NewNotFoundError("Reference not found")}

	app := newTestApp()
	app.Put("/boards", NewBoardHandler(svc).UpdateReference)

	resp, _ := doJSON(t, app, fiber.MethodPut, "/boards", dto.UpdateReferenceRequest{
		Reference: model.Reference{"id": int64(42), "title": "renamed"},
	})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRemoveReference(t *testing.T) {
	svc := &fakeBoardService{}

	app := newTestApp()
	app.Delete("/boards", NewBoardHandler(svc).RemoveReference)

	resp, body := doJSON(t, app, fiber.MethodDelete, "/boards?boardId=team-a", dto.RemoveReferenceRequest{
		ReferenceID: 1700000000000,
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got dto.SuccessResponse
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if !got.Success {
		t.Error("success = false, want true")
	}

	if svc.gotRefID != 1700000000000 {
		t.Errorf("reference id passed to service = %d", svc.gotRefID)
	}
}

func TestRemoveReferenceMissingID(t *testing.T) {
	svc := &fakeBoardService{}

	app := newTestApp()
	app.Delete("/boards", NewBoardHandler(svc).RemoveReference)

	resp, _ := doJSON(t, app, fiber.MethodDelete, "/boards", map[string]interface{}{})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSetCategories(t *testing.T) {
	svc := &fakeBoardService{}

	app := newTestApp()
	app.Post("/categories", NewBoardHandler(svc).SetCategories)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/categories", dto.SetCategoriesRequest{
		CustomCategories: map[string]interface{}{"navigation": []interface{}{"navbar"}},
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if _, ok := svc.gotCats["navigation"]; !ok {
		t.Errorf("categories passed to service = %v", svc.gotCats)
	}
}

func TestAnalyze(t *testing.T) {
	svc := &fakeFigmaService{code: "(async () => {})();"}

	app := newTestApp()
	app.Post("/analyze", NewAnalyzeHandler(svc).Analyze)

	resp, body := doJSON(t, app, fiber.MethodPost, "/analyze", dto.AnalyzeRequest{
		Image:         "aGk=",
		ComponentName: "Login<script>Card",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got dto.AnalyzeResponse
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if !got.Success || got.FigmaCode != "(async () => {})();" {
		t.Errorf("response = %+v", got)
	}

	// The handler normalizes before handing off.
	if svc.gotReq.MimeType != "image/png" {
		t.Errorf("mime type = %q, want the image/png default", svc.gotReq.MimeType)
	}
	if svc.gotReq.ImageWidth != 400 || svc.gotReq.ImageHeight != 300 {
		t.Errorf("dimensions = %dx%d, want the 400x300 default", svc.gotReq.ImageWidth, svc.gotReq.ImageHeight)
	}
	if svc.gotReq.ComponentName != "LoginscriptCard" {
		t.Errorf("component name = %q, want sanitized", svc.gotReq.ComponentName)
	}
}

func TestAnalyzeMissingImage(t *testing.T) {
	svc := &fakeFigmaService{}

	app := newTestApp()
	app.Post("/analyze", NewAnalyzeHandler(svc).Analyze)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/analyze", map[string]interface{}{"componentName": "Card"})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeUpstreamErrorPropagates(t *testing.T) {
	svc := &fakeFigmaService{returnErr: shared.NewUpstreamError(http.StatusTooManyRequests, nil, "AI processing failed")}

	app := newTestApp()
	app.Post("/analyze", NewAnalyzeHandler(svc).Analyze)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/analyze", dto.AnalyzeRequest{Image: "aGk="})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
}

func TestUpload(t *testing.T) {
	svc := &fakeUploadService{result: &dto.UploadResult{URL: "https://cdn.example.com/reflex-uploads/reflex/1-abc.png"}}

	app := newTestApp()
	app.Post("/upload", NewUploadHandler(svc).Upload)

	resp, body := doJSON(t, app, fiber.MethodPost, "/upload", dto.UploadRequest{Image: "aGk=", ContentType: "image/png"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got dto.UploadResponse
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if !got.Success || got.Fallback {
		t.Errorf("response = %+v", got)
	}
	if got.URL != svc.result.URL {
		t.Errorf("url = %q", got.URL)
	}
}

func TestUploadFallbackShape(t *testing.T) {
	dataURL := "data:image/png;base64,aGk="
	svc := &fakeUploadService{result: &dto.UploadResult{URL: dataURL, Fallback: true}}

	app := newTestApp()
	app.Post("/upload", NewUploadHandler(svc).Upload)

	resp, body := doJSON(t, app, fiber.MethodPost, "/upload", dto.UploadRequest{Image: dataURL})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got dto.UploadResponse
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if !got.Success || !got.Fallback {
		t.Errorf("response = %+v", got)
	}
	if got.URL != dataURL {
		t.Errorf("url = %q, want the original data URL", got.URL)
	}
}

func TestUploadMissingImage(t *testing.T) {
	svc := &fakeUploadService{}

	app := newTestApp()
	app.Post("/upload", NewUploadHandler(svc).Upload)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/upload", map[string]interface{}{})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
