package apperr_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KaramelBytes/segmenta/internal/apperr"
)

func TestError_Message(t *testing.T) {
	err := apperr.ForColumn(apperr.ErrPreprocessing, "impute", "age", "all values missing")
	assert.Equal(t, `impute: preprocessing error (column "age"): all values missing`, err.Error())

	wrapped := apperr.Wrap(apperr.ErrFormat, "load", io.ErrUnexpectedEOF)
	assert.Equal(t, "load: format error: unexpected EOF", wrapped.Error())
}

func TestError_IsAndKindOf(t *testing.T) {
	err := fmt.Errorf("kmeans: %w", apperr.New(apperr.ErrInvalidK, "fit", "k=%d", 9))
	assert.ErrorIs(t, err, apperr.ErrInvalidK)
	assert.NotErrorIs(t, err, apperr.ErrFormat)
	assert.Equal(t, apperr.ErrInvalidK, apperr.KindOf(err))

	cause := apperr.Wrap(apperr.ErrPersistence, "persist", io.EOF)
	assert.ErrorIs(t, cause, io.EOF)
	assert.ErrorIs(t, cause, apperr.ErrPersistence)

	var ae *apperr.Error
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, "fit", ae.Stage)

	assert.Nil(t, apperr.KindOf(errors.New("plain")))
}
