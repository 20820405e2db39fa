// Package translate renders a selected passage in the reader's language.
// It is never called while ranking.
package translate

import (
	"context"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/errors"
)

// Translator converts text from source to target language. Language codes
// follow ISO 639-1 ("en", "zh").
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Disabled is the Translator used when no translation service is configured.
type Disabled struct{}

func (Disabled) Translate(context.Context, string, string, string) (string, error) {
	return "", apperrors.New(apperrors.ErrTranslationUnavailable, http.StatusServiceUnavailable, "translation is not configured")
}
