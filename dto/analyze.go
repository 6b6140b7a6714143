package dto

import (
	"regexp"
	"strings"

	"github.com/press141-netizen/reflex/shared"
)

type AnalyzeRequest struct {
	Image         string   `json:"image" validate:"required"`
	MimeType      string   `json:"mimeType" validate:"omitempty,oneof=image/png image/jpeg image/jpg image/gif image/webp"`
	ComponentName string   `json:"componentName" validate:"omitempty,max=256"`
	ImageWidth    int      `json:"imageWidth" validate:"omitempty,min=1,max=10000"`
	ImageHeight   int      `json:"imageHeight" validate:"omitempty,min=1,max=10000"`
	Context       string   `json:"context" validate:"omitempty,max=2000"`
	ImageNote     string   `json:"imageNote" validate:"omitempty,max=2000"`
	Tags          []string `json:"tags" validate:"omitempty,max=20,dive,max=100"`
}

func (r *AnalyzeRequest) Validate() error {
	return GetValidator().Struct(r)
}

// Normalize fills defaults and sanitizes free-form fields after validation.
// The older frontend sent the note as imageNote, the newer one as context.
func (r *AnalyzeRequest) Normalize() {
	if r.MimeType == "" {
		r.MimeType = "image/png"
	}
	if r.ImageWidth == 0 {
		r.ImageWidth = 400
	}
	if r.ImageHeight == 0 {
		r.ImageHeight = 300
	}
	if r.Context == "" {
		r.Context = r.ImageNote
	}
	r.ComponentName = SanitizeComponentName(r.ComponentName)
}

type AnalyzeResponse struct {
	Success   bool   `json:"success"`
	FigmaCode string `json:"figmaCode"`
}

var componentNamePattern = regexp.MustCompile(`[^A-Za-z0-9_ -]`)

// SanitizeComponentName strips the name to a safe character set and caps its
// length. The name is interpolated into generated code, so nothing outside
// the allow-list may survive.
func SanitizeComponentName(name string) string {
	name = componentNamePattern.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if len(name) > shared.MaxComponentNameLength {
		name = name[:shared.MaxComponentNameLength]
	}
	if name == "" {
		return "Component"
	}
	return name
}
