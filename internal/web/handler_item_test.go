package web

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/roadiebag/internal/domain"
)

func TestParseItemFilter(t *testing.T) {
	f, err := parseItemFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, domain.ItemFilter{}, f)

	f, err = parseItemFilter(url.Values{
		"name":        {"rope"},
		"description": {""},
		"size":        {"large"},
		"infinite":    {"false"},
		"page_num":    {"2"},
		"page_size":   {"10"},
	})
	require.NoError(t, err)
	require.NotNil(t, f.Name)
	assert.Equal(t, "rope", *f.Name)
	require.NotNil(t, f.Description)
	assert.Equal(t, "", *f.Description)
	require.NotNil(t, f.Size)
	assert.Equal(t, domain.SizeLarge, *f.Size)
	require.NotNil(t, f.Infinite)
	assert.False(t, *f.Infinite)
	assert.Equal(t, 2, f.PageNum)
	assert.Equal(t, 10, f.PageSize)
}

func TestParseItemFilterErrors(t *testing.T) {
	_, err := parseItemFilter(url.Values{
		"size":      {"huge"},
		"infinite":  {"maybe"},
		"page_size": {"ten"},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}
