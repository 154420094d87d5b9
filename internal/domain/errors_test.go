package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKindAndUnwrap(t *testing.T) {
	err := Validation("poster.Export", ErrMissingLogo)

	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, errors.Is(err, ErrMissingLogo))
	assert.Equal(t, "poster.Export: validation: logo is required before export", err.Error())
}

func TestKindSurvivesWrapping(t *testing.T) {
	upstream := errors.New("bucket not found")
	err := errors.Wrap(Storage("studio.Save", upstream), "save all")

	assert.True(t, IsKind(err, KindStorage))
	assert.True(t, errors.Is(err, upstream))
}

func TestNilErrorStaysNil(t *testing.T) {
	assert.Nil(t, E(KindDecode, "op", nil))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestInvalidAttributesKeepsSentinelAndDetail(t *testing.T) {
	err := InvalidAttributes("reel.Record", errors.New("price must be numeric"))

	assert.True(t, IsKind(err, KindValidation))
	assert.True(t, errors.Is(err, ErrInvalidAttributes))
	assert.Contains(t, err.Error(), "price must be numeric")
	assert.Nil(t, InvalidAttributes("op", nil))
}
