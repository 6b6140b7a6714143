package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/press141-netizen/reflex/dto"
)

// FigmaService turns a screenshot into Figma-plugin JavaScript: it builds
// the instruction prompt, runs one model call and repairs the returned text
// into a structurally runnable script.
type FigmaService struct {
	appContext.DefaultService

	anthropicSvc *AnthropicService
}

const FIGMA_SVC = "figma_svc"

func (svc FigmaService) Id() string {
	return FIGMA_SVC
}

func (svc *FigmaService) Start() error {
	svc.anthropicSvc = svc.Service(ANTHROPIC_SVC).(*AnthropicService)
	return nil
}

func (svc *FigmaService) Generate(ctx context.Context, req dto.AnalyzeRequest) (string, error) {
	prompt := BuildPrompt(req)

	start := time.Now()
	raw, err := svc.anthropicSvc.AnalyzeImage(ctx, req.Image, req.MimeType, prompt)
	RecordGeneration(time.Since(start), err == nil)
	if err != nil {
		return "", err
	}

	log.WithField("component", req.ComponentName).WithField("raw_len", len(raw)).
		Debug("Generation finished")

	return SanitizeCode(raw), nil
}

const promptTemplate = `
Generate Figma Plugin API code for this UI component (%dx%dpx).
%s
%s

RULES:
1. Return ONLY valid JavaScript code. NO markdown formatting.
2. Use standard Figma API: figma.createFrame(), figma.createText(), figma.createRectangle().
3. Helper functions provided in START CODE: txt(), box(). Use them.
4. Auto Layout: Use layoutMode "HORIZONTAL" or "VERTICAL".
5. Fonts: Use "Inter".
6. END with: appending to figma.currentPage and scrolling into view.

START CODE TEMPLATE:
(async () => {
  await figma.loadFontAsync({ family: "Inter", style: "Regular" });
  await figma.loadFontAsync({ family: "Inter", style: "Medium" });
  await figma.loadFontAsync({ family: "Inter", style: "Semi Bold" });

  const txt = (p,s,sz,c,st="Regular")=>{const t=figma.createText();t.fontName={family:"Inter",style:st};t.characters=s;t.fontSize=sz;t.fills=[{type:'SOLID',color:c}];p.appendChild(t);return t;};
  const box = (p,w,h,c,r=0)=>{const b=figma.createRectangle();b.resize(w,h);b.fills=[{type:'SOLID',color:c}];b.cornerRadius=r;p.appendChild(b);return b;};

  const frame = figma.createFrame();
  frame.name = "%s";
  frame.resize(%d, %d);

  // ... (Your Generated Code) ...

  figma.currentPage.appendChild(frame);
  figma.viewport.scrollAndZoomIntoView([frame]);
})();
`

// BuildPrompt assembles the instruction text for a normalized request.
func BuildPrompt(req dto.AnalyzeRequest) string {
	designContext := ""
	if req.Context != "" {
		designContext = "Design Context: " + req.Context
	}

	designTags := ""
	if len(req.Tags) > 0 {
		designTags = "Style Tags: " + strings.Join(req.Tags, ", ")
	}

	return fmt.Sprintf(promptTemplate,
		req.ImageWidth, req.ImageHeight,
		designContext, designTags,
		req.ComponentName,
		req.ImageWidth, req.ImageHeight,
	)
}

// SanitizeCode repairs the raw model output into runnable plugin code:
// fences stripped, surrounding prose trimmed, invalid enum literals patched
// and the finalize tail guaranteed.
func SanitizeCode(code string) string {
	code = StripMarkdownFences(code)
	code = TrimToCodeSpan(code)
	code = PatchEnums(code)
	code = EnsureFinalize(code)
	return code
}

var (
	fenceJavascript = regexp.MustCompile("(?i)```javascript\n?")
	fenceJs         = regexp.MustCompile("(?i)```js\n?")
	fenceBare       = regexp.MustCompile("```\n?")
)

func StripMarkdownFences(code string) string {
	code = fenceJavascript.ReplaceAllString(code, "")
	code = fenceJs.ReplaceAllString(code, "")
	code = fenceBare.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}

var codeStartTokens = []string{"(async", "const ", "let ", "await ", "figma.", "//"}

const codeEndToken = "})();"

// TrimToCodeSpan drops prose before the first recognizable code token and
// after the final closing of the async wrapper.
func TrimToCodeSpan(code string) string {
	start := -1
	for _, token := range codeStartTokens {
		if idx := strings.Index(code, token); idx >= 0 && (start == -1 || idx < start) {
			start = idx
		}
	}
	if start > 0 {
		code = code[start:]
	}

	if end := strings.LastIndex(code, codeEndToken); end >= 0 {
		code = code[:end+len(codeEndToken)]
	}

	return strings.TrimSpace(code)
}

var (
	sizingModePattern  = regexp.MustCompile(`(primaryAxisSizingMode|counterAxisSizingMode)(\s*=\s*)["']([A-Z_]+)["']`)
	layoutAlignPattern = regexp.MustCompile(`(layoutAlign)(\s*=\s*)["']([A-Z_]+)["']`)

	validSizingModes = map[string]bool{"FIXED": true, "AUTO": true}
	validLayoutAlign = map[string]bool{"MIN": true, "CENTER": true, "MAX": true, "STRETCH": true, "INHERIT": true}
)

// PatchEnums rewrites sizing-mode and layout-align literals the plugin API
// rejects into valid equivalents.
func PatchEnums(code string) string {
	code = sizingModePattern.ReplaceAllStringFunc(code, func(match string) string {
		parts := sizingModePattern.FindStringSubmatch(match)
		if validSizingModes[parts[3]] {
			return match
		}
		return parts[1] + parts[2] + `"AUTO"`
	})

	code = layoutAlignPattern.ReplaceAllStringFunc(code, func(match string) string {
		parts := layoutAlignPattern.FindStringSubmatch(match)
		if validLayoutAlign[parts[3]] {
			return match
		}
		return parts[1] + parts[2] + `"STRETCH"`
	})

	return code
}

var closingCallPattern = regexp.MustCompile(`\}\)\(\);?\s*$`)

const finalizeTail = `
  figma.currentPage.appendChild(frame);
  figma.viewport.scrollAndZoomIntoView([frame]);
})();`

// EnsureFinalize appends the append/viewport call sequence when the model
// dropped it, so the output always runs to completion.
func EnsureFinalize(code string) string {
	if strings.Contains(code, "figma.currentPage.appendChild") {
		return code
	}
	return closingCallPattern.ReplaceAllString(code, "") + finalizeTail
}
