package image

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultMaxBytes is the largest image accepted unless configured otherwise.
const DefaultMaxBytes = 10 * 1024 * 1024

const defaultExtension = ".jpg"

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var (
	dataURIPattern   = regexp.MustCompile(`^data:image/(jpeg|jpg|png|webp);base64,`)
	extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
)

// validate returns every rule the payload breaks; an empty slice means it is acceptable.
func validate(p Payload, maxBytes int64) []string {
	var problems []string

	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "image name is required")
	}

	contentType := normalizeType(p.Type)
	switch {
	case contentType == "":
		problems = append(problems, "image type is required")
	case !isAllowedType(contentType):
		problems = append(problems, fmt.Sprintf("image type %q is not allowed (jpeg, jpg, png, webp)", p.Type))
	}

	switch {
	case p.Data == "":
		problems = append(problems, "image data is required")
	case !dataURIPattern.MatchString(p.Data):
		problems = append(problems, "image data must be a base64 data URI of type jpeg, jpg, png or webp")
	}

	if p.Size != nil && *p.Size > maxBytes {
		problems = append(problems, fmt.Sprintf("image size %d exceeds limit of %d bytes", *p.Size, maxBytes))
	}

	return problems
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func isAllowedType(contentType string) bool {
	_, ok := allowedTypes[contentType]
	return ok
}

// extensionFor prefers the extension of the original filename and falls back
// to the declared MIME type.
func extensionFor(originalName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(originalName)))
	if extensionPattern.MatchString(ext) {
		return ext
	}
	if mapped, ok := allowedTypes[normalizeType(contentType)]; ok {
		return mapped
	}
	return defaultExtension
}

// stripDataURI removes the "data:<type>;base64," prefix.
func stripDataURI(data string) string {
	loc := dataURIPattern.FindStringIndex(data)
	if loc == nil {
		return data
	}
	return data[loc[1]:]
}
