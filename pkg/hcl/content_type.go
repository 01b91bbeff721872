package hcl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// ContentTypeHCL is the custom MIME type for HCL configuration
	ContentTypeHCL = "application/vnd.hcl"

	// ContentTypeJSON is the standard MIME type for JSON
	ContentTypeJSON = "application/json"

	// ContentTypeYAML is the MIME type used for YAML schedule documents
	ContentTypeYAML = "application/yaml"

	// ContentTypeTOML is the MIME type used for TOML schedule documents
	ContentTypeTOML = "application/toml"
)

// NormalizeContentType maps a Content-Type header value onto one of the
// supported schedule formats, or "" when it is not recognised
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	switch mediaType {
	case ContentTypeHCL, "text/x-hcl":
		return ContentTypeHCL
	case ContentTypeJSON:
		return ContentTypeJSON
	case ContentTypeYAML, "application/x-yaml", "text/yaml", "text/x-yaml":
		return ContentTypeYAML
	case ContentTypeTOML, "application/x-toml", "text/x-toml":
		return ContentTypeTOML
	}
	return ""
}

// DetectContentType determines if the content is JSON, TOML, HCL or YAML based on
// content-type header and content inspection
func DetectContentType(r *http.Request) (string, error) {
	if contentType := NormalizeContentType(r.Header.Get("Content-Type")); contentType != "" {
		return contentType, nil
	}

	// If Content-Type is not set or not recognized, inspect the content
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}

	// Reset the body so it can be read again later
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	return DetectContent(body), nil
}

// DetectContent guesses the format of a schedule document from its bytes
func DetectContent(body []byte) string {
	trimmedBody := bytes.TrimSpace(body)
	if len(trimmedBody) == 0 {
		return ContentTypeYAML
	}

	// A TOML array of tables also opens with '[', so only valid JSON claims it
	switch trimmedBody[0] {
	case '{':
		return ContentTypeJSON
	case '[':
		if json.Valid(trimmedBody) {
			return ContentTypeJSON
		}
	}

	// TOML goes first: inline-table TOML frames are also valid HCL syntax,
	// while HCL frame blocks never parse as TOML
	if IsTOML(trimmedBody) {
		return ContentTypeTOML
	}
	if IsHCL(trimmedBody) {
		return ContentTypeHCL
	}

	return ContentTypeYAML
}

// IsTOML reports whether content parses as a TOML document
func IsTOML(content []byte) bool {
	var doc map[string]interface{}
	_, err := toml.Decode(string(content), &doc)
	return err == nil
}

// IsHCLBasedOnExtension checks if the filename has an HCL extension
func IsHCLBasedOnExtension(filename string) bool {
	return strings.HasSuffix(filename, ".hcl") ||
		strings.HasSuffix(filename, ".tf") ||
		strings.HasSuffix(filename, ".tfvars")
}

// ContentTypeFromExtension maps a file name onto a schedule format, or "" if unknown
func ContentTypeFromExtension(filename string) string {
	if IsHCLBasedOnExtension(filename) {
		return ContentTypeHCL
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ContentTypeJSON
	case ".yaml", ".yml":
		return ContentTypeYAML
	case ".toml":
		return ContentTypeTOML
	}
	return ""
}
