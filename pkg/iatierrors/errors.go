// Package iatierrors defines the structured error taxonomy used while
// ingesting IATI XML. Parse errors fall into categories with different
// severities: field errors are recorded as dataset notes and parsing
// continues, parser errors abort the whole document.
package iatierrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Error kinds as recorded on dataset notes.
const (
	KindRequiredField     = "required_field"
	KindFieldValidation   = "field_validation"
	KindIgnoredVocabulary = "ignored_vocabulary"
	KindParserError       = "parser_error"
)

// ErrNoUpdateRequired signals that an activity's last-updated timestamp is
// unchanged from what is stored, so the activity is skipped without error.
var ErrNoUpdateRequired = errors.New("no update required")

// ParseError is the common shape of an ingestion failure. ElementPath is the
// normalized XML path being handled, Model and Field name the target being
// built, ActivityIdentifier is set once an iati-identifier has been seen.
type ParseError struct {
	Kind               string
	ElementPath        string
	Model              string
	Field              string
	ActivityIdentifier string
	Line               int
	Message            string
}

// NewRequiredFieldError reports a missing attribute or element the model
// cannot be built without.
func NewRequiredFieldError(model, field string) *ParseError {
	return &ParseError{
		Kind:    KindRequiredField,
		Model:   model,
		Field:   field,
		Message: "required field is missing",
	}
}

// NewFieldValidationError reports a present but malformed value.
func NewFieldValidationError(model, field, msg string) *ParseError {
	return &ParseError{
		Kind:    KindFieldValidation,
		Model:   model,
		Field:   field,
		Message: msg,
	}
}

// NewFieldValidationErrorf is NewFieldValidationError with a formatted message.
func NewFieldValidationErrorf(model, field, format string, args ...any) *ParseError {
	return NewFieldValidationError(model, field, fmt.Sprintf(format, args...))
}

// NewIgnoredVocabularyError reports an element skipped because its vocabulary
// is not one the engine stores. Informational; the element is dropped.
func NewIgnoredVocabularyError(model, field, vocabulary string) *ParseError {
	return &ParseError{
		Kind:    KindIgnoredVocabulary,
		Model:   model,
		Field:   field,
		Message: fmt.Sprintf("vocabulary '%s' is not stored, element ignored", vocabulary),
	}
}

// NewParserError reports document-level malformation. Fatal to the dataset.
func NewParserError(msg string) *ParseError {
	return &ParseError{
		Kind:    KindParserError,
		Message: msg,
	}
}

func (e *ParseError) Error() string {
	path := []string{}
	if e.ActivityIdentifier != "" {
		path = append(path, fmt.Sprintf("activity '%s'", e.ActivityIdentifier))
	}
	if e.Model != "" {
		path = append(path, fmt.Sprintf("model '%s'", e.Model))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *ParseError) AddElementPath(path string) *ParseError {
	e.ElementPath = path
	return e
}

func (e *ParseError) AddActivityIdentifier(identifier string) *ParseError {
	e.ActivityIdentifier = identifier
	return e
}

func (e *ParseError) AddLine(line int) *ParseError {
	e.Line = line
	return e
}

// ToNote converts the error into a dataset note ready for insertion.
func (e *ParseError) ToNote(datasetID string) *models.DatasetNote {
	note := &models.DatasetNote{
		DatasetID:   datasetID,
		Kind:        e.Kind,
		Model:       e.Model,
		Field:       e.Field,
		Message:     e.Message,
		ElementPath: e.ElementPath,
		Line:        e.Line,
	}
	if e.ActivityIdentifier != "" {
		identifier := e.ActivityIdentifier
		note.ActivityIdentifier = &identifier
	}
	return note
}

func (e *ParseError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).
		AddMetaValue("kind", e.Kind).
		AddMetaValue("model", e.Model).
		AddMetaValue("field", e.Field).
		AddMetaValue("element_path", e.ElementPath)
}

// WrapParseError coerces an arbitrary error into a ParseError, preserving it
// when it already is one.
func WrapParseError(err error) *ParseError {
	if err == nil {
		return nil
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}

	return NewParserError(err.Error())
}

func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsFatal reports whether the error should abort the whole dataset rather
// than just the current activity.
func IsFatal(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == KindParserError
	}
	return false
}

// IsIgnoredVocabulary reports whether the error only marks a dropped element.
func IsIgnoredVocabulary(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == KindIgnoredVocabulary
	}
	return false
}
