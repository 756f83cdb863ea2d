package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
	"github.com/n1k0r/librenotes-server/internal/validation"
)

type credentials struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

type change struct {
	UUID    string  `json:"uuid" validate:"omitempty,uuidstr"`
	Name    *string `json:"name,omitempty" validate:"omitempty,tagname"`
	Created *string `json:"created,omitempty" validate:"omitempty,timestamp"`
}

type batch struct {
	Changes []change `json:"changes" validate:"dive"`
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr), "want *errors.Error, got %T", err)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
	d, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	return d
}

func ptr(s string) *string { return &s }

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(credentials{Username: "alice", Password: "password123"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       credentials
		wantField string
		wantMsg   string
	}{
		{"missing username", credentials{Password: "password123"}, "username", "is required"},
		{"short username", credentials{Username: "al", Password: "password123"}, "username", "at least 3"},
		{"short password", credentials{Username: "alice", Password: "short"}, "password", "at least 8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
			d := details(t, err)
			assert.Contains(t, d[tt.wantField], tt.wantMsg)
		})
	}
}

func TestValidator_NestedPaths(t *testing.T) {
	v := validation.New()

	err := v.Validate(batch{Changes: []change{
		{UUID: "4F9C2D8E-6A1B-4C3D-9E8F-0A1B2C3D4E5F", Name: ptr("ok")},
		{UUID: "not-a-uuid"},
		{Name: ptr(strings.Repeat("x", 31))},
		{Created: ptr("yesterday")},
	}})
	require.Error(t, err)

	d := details(t, err)
	assert.Equal(t, "must be a valid UUID", d["changes[1].uuid"])
	assert.Contains(t, d["changes[2].name"], "30")
	assert.Contains(t, d["changes[3].created"], "RFC 3339")
	assert.Len(t, d, 3)
}

func TestValidator_TagNameCountsNormalizedRunes(t *testing.T) {
	v := validation.New()

	// 60 runes as sent, 30 once trimmed and composed to NFC.
	name := "  " + strings.Repeat("e\u0301", 30) + "  "
	assert.NoError(t, v.Validate(batch{Changes: []change{{Name: &name}}}))
}

func TestValidator_Timestamps(t *testing.T) {
	v := validation.New()
	for _, ts := range []string{"2024-03-01T12:30:15Z", "2024-03-01T12:30:15.123+02:00", "1709296215000"} {
		assert.NoError(t, v.Validate(batch{Changes: []change{{Created: ptr(ts)}}}), ts)
	}
}
