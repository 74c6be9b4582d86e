package domain

import (
	"errors"
	"fmt"
)

// Class groups error kinds by how a caller should react to them.
type Class int

const (
	ClassInternal Class = iota
	ClassInput
	ClassNotFound
	ClassUnderstanding
	ClassUnavailable
)

// Kind is a semantic error category. Kinds are compared by identity, so
// wrapped errors match with errors.Is.
type Kind struct {
	code  string
	msg   string
	class Class
}

func newKind(code, msg string, class Class) *Kind {
	return &Kind{code: code, msg: msg, class: class}
}

func (k *Kind) Error() string { return k.msg }

// Code is stable and safe to expose to clients.
func (k *Kind) Code() string { return k.code }

func (k *Kind) Class() Class { return k.class }

// Retryable reports whether the same request may succeed later.
func (k *Kind) Retryable() bool { return k.class == ClassUnavailable }

var (
	ErrInvalidInput             = newKind("invalid_input", "invalid input", ClassInput)
	ErrPlaceNotFound            = newKind("place_not_found", "place not found", ClassNotFound)
	ErrReviewNotFound           = newKind("review_not_found", "review not found", ClassNotFound)
	ErrInvalidQueryType         = newKind("invalid_query_type", "invalid query type", ClassUnderstanding)
	ErrIntentClassification     = newKind("intent_classification_failed", "intent classification failed", ClassUnderstanding)
	ErrEmbeddingUnavailable     = newKind("embedding_unavailable", "embedding service unavailable", ClassUnavailable)
	ErrStoreUnavailable         = newKind("store_unavailable", "store unavailable", ClassUnavailable)
	ErrLanguageModelUnavailable = newKind("language_model_unavailable", "language model unavailable", ClassUnavailable)
	ErrTemporary                = newKind("temporarily_unavailable", "temporary failure", ClassUnavailable)
)

// kinds is in precedence order: an error wrapped with several kinds
// reports the first one listed here.
var kinds = []*Kind{
	ErrInvalidInput,
	ErrPlaceNotFound,
	ErrReviewNotFound,
	ErrInvalidQueryType,
	ErrIntentClassification,
	ErrEmbeddingUnavailable,
	ErrStoreUnavailable,
	ErrLanguageModelUnavailable,
	ErrTemporary,
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the highest-precedence kind in err's chain, or nil.
func KindOf(err error) *Kind {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
