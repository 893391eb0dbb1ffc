package iatierrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ParseError
		want string
	}{
		{
			"message only",
			NewParserError("malformed XML"),
			"malformed XML",
		},
		{
			"model and field",
			NewRequiredFieldError("activity", "iati-identifier"),
			"model 'activity' -> field 'iati-identifier': required field is missing",
		},
		{
			"with activity identifier",
			NewFieldValidationError("budget", "value", "invalid amount 'x'").AddActivityIdentifier("XM-1"),
			"activity 'XM-1' -> model 'budget' -> field 'value': invalid amount 'x'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindRequiredField, NewRequiredFieldError("m", "f").Kind)
	assert.Equal(t, KindFieldValidation, NewFieldValidationError("m", "f", "msg").Kind)
	assert.Equal(t, KindIgnoredVocabulary, NewIgnoredVocabularyError("m", "f", "99").Kind)
	assert.Equal(t, KindParserError, NewParserError("msg").Kind)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewParserError("bad document")))
	assert.False(t, IsFatal(NewRequiredFieldError("m", "f")))
	assert.False(t, IsFatal(errors.New("plain")))
	assert.False(t, IsFatal(nil))
}

func TestIsIgnoredVocabulary(t *testing.T) {
	assert.True(t, IsIgnoredVocabulary(NewIgnoredVocabularyError("sector", "vocabulary", "99")))
	assert.False(t, IsIgnoredVocabulary(NewFieldValidationError("m", "f", "msg")))
}

func TestWrapParseError(t *testing.T) {
	t.Run("preserves existing parse error", func(t *testing.T) {
		orig := NewRequiredFieldError("activity", "iati-identifier")
		wrapped := WrapParseError(orig)
		assert.Same(t, orig, wrapped)
	})

	t.Run("coerces arbitrary errors to parser errors", func(t *testing.T) {
		wrapped := WrapParseError(errors.New("boom"))
		require.NotNil(t, wrapped)
		assert.Equal(t, KindParserError, wrapped.Kind)
		assert.Equal(t, "boom", wrapped.Message)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, WrapParseError(nil))
	})
}

func TestToNote(t *testing.T) {
	pe := NewFieldValidationError("sector", "percentage", "invalid percentage 'x'").
		AddElementPath("iati_activity/sector").
		AddActivityIdentifier("XM-1").
		AddLine(42)

	note := pe.ToNote("ds-1")
	assert.Equal(t, "ds-1", note.DatasetID)
	assert.Equal(t, KindFieldValidation, note.Kind)
	assert.Equal(t, "sector", note.Model)
	assert.Equal(t, "percentage", note.Field)
	assert.Equal(t, "iati_activity/sector", note.ElementPath)
	assert.Equal(t, 42, note.Line)
	require.NotNil(t, note.ActivityIdentifier)
	assert.Equal(t, "XM-1", *note.ActivityIdentifier)
}

func TestToNote_NoActivityIdentifier(t *testing.T) {
	note := NewParserError("bad").ToNote("ds-1")
	assert.Nil(t, note.ActivityIdentifier)
}
