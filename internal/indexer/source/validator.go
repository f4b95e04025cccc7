package source

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/barrel-search/pkg/errors"
)

const maxURLLength = 2048

// ValidationError holds per-field validation failure messages for one
// article.
type ValidationError struct {
	Index  int
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s:%s", f, e.Fields[f]))
	}
	return fmt.Sprintf("article %d: %s", e.Index, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateArticle checks that the article can be registered. Title and
// content may be empty.
func ValidateArticle(i int, a *Article) error {
	errs := make(map[string]string)
	if strings.TrimSpace(string(a.ID)) == "" {
		errs["id"] = "id is required"
	}
	url := strings.TrimSpace(a.URL)
	if url == "" {
		errs["url"] = "url is required"
	} else if len(url) > maxURLLength {
		errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Index: i, Fields: errs}
	}
	return nil
}
