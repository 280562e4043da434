package agent

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// VerificationFailedMarker appears in an analysis when the photo looks fake.
const VerificationFailedMarker = "Failed"

// ImageAnalyzer asks the language service whether an evidence photo is
// genuine and what damage it shows.
type ImageAnalyzer struct {
	gateway Gateway
	prompts *Prompts
}

// NewImageAnalyzer creates an analyzer.
func NewImageAnalyzer(gateway Gateway, prompts *Prompts) *ImageAnalyzer {
	return &ImageAnalyzer{gateway: gateway, prompts: prompts}
}

// Analyze returns the language service's assessment of img. Camera metadata,
// or its absence, is passed along as a hint since screenshots and edited
// images usually carry none.
func (a *ImageAnalyzer) Analyze(ctx context.Context, img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("empty image")
	}

	prompt := strings.TrimSpace(a.prompts.ImageAnalysis)
	if hint := CameraHint(img.Data); hint != "" {
		prompt += "\n" + hint
	}

	text, err := a.gateway.Complete(ctx, CompletionRequest{
		UserText: prompt,
		Image:    &img,
	})
	if err != nil {
		return "", fmt.Errorf("analyze image: %w", err)
	}
	return text, nil
}

// CameraHint summarizes EXIF camera metadata of a JPEG or TIFF image.
func CameraHint(data []byte) string {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return "Camera metadata: none found (possible screenshot or edited image)."
	}

	var fields []string
	for _, name := range []exif.FieldName{exif.Make, exif.Model, exif.Software} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		if value, err := tag.StringVal(); err == nil && strings.TrimSpace(value) != "" {
			fields = append(fields, fmt.Sprintf("%s=%s", name, strings.TrimSpace(value)))
		}
	}
	if taken, err := x.DateTime(); err == nil {
		fields = append(fields, "DateTime="+taken.Format("2006-01-02 15:04"))
	}

	if len(fields) == 0 {
		return "Camera metadata: present but empty."
	}
	return "Camera metadata: " + strings.Join(fields, ", ") + "."
}

// VerificationFailed reports whether an analysis rejected the photo.
func VerificationFailed(analysis string) bool {
	return strings.Contains(analysis, VerificationFailedMarker)
}
