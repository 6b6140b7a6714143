package dto

type UploadRequest struct {
	Image       string `json:"image" validate:"required"`
	ContentType string `json:"contentType" validate:"omitempty,max=64"`
}

func (r *UploadRequest) Validate() error {
	return GetValidator().Struct(r)
}

type UploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Fallback bool   `json:"fallback,omitempty"`
}

// UploadResult is what the relay hands back to the handler. Fallback is set
// when blob storage was skipped or failed and URL carries the original data.
type UploadResult struct {
	URL      string
	Fallback bool
}
