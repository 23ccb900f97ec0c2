package cache

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	apperrors "editorial-cache/internal/common/errors"
)

// Namespaces with dedicated handling. Any other string is a generic namespace.
const (
	NamespaceReferee     = "referee"
	NamespaceManuscript  = "manuscript"
	NamespaceInstitution = "institution"

	NamespaceLargeDocument   = "large_document"
	NamespaceExtractedText   = "extracted_text"
	NamespaceAnalysisResults = "analysis_results"

	NamespaceAPIResponse = "api_response"
)

// Components identify a value within a namespace. Relational namespaces read
// their lookup fields from it: "email" for referees, "manuscript_id" and
// "journal" for manuscripts, "domain" (or "email") for institutions.
type Components map[string]interface{}

// Key derives the tier key "<namespace>:<hash>" from the namespace and the
// components. encoding/json writes map keys in sorted order, so equal
// components always hash the same.
func Key(namespace string, components Components) (string, error) {
	if strings.TrimSpace(namespace) == "" {
		return "", apperrors.ValidationError("namespace is required")
	}
	if components == nil {
		components = Components{}
	}

	data, err := json.Marshal(components)
	if err != nil {
		return "", apperrors.ValidationError("cache key components must be JSON-serializable").
			WithContext("namespace", namespace).
			WithContext("error", err.Error())
	}
	return fmt.Sprintf("%s:%016x", namespace, xxhash.Sum64(data)), nil
}

func isRelational(namespace string) bool {
	switch namespace {
	case NamespaceReferee, NamespaceManuscript, NamespaceInstitution:
		return true
	}
	return false
}

func isLarge(namespace string) bool {
	switch namespace {
	case NamespaceLargeDocument, NamespaceExtractedText, NamespaceAnalysisResults:
		return true
	}
	return false
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// blobFileName maps "<namespace>:<hash>" to "<namespace>_<hash>.json"
func blobFileName(key string) string {
	namespace, hash, _ := strings.Cut(key, ":")
	return unsafeFileChars.ReplaceAllString(namespace, "_") + "_" + hash + ".json"
}

func componentString(components Components, names ...string) string {
	for _, name := range names {
		if v, ok := components[name]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}
