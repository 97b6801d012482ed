package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	page, err := Build("Pool viewer", "&copy; OpenStreetMap contributors")
	require.NoError(t, err)

	s := string(page)
	assert.Contains(t, s, "Pool viewer")
	assert.Contains(t, s, "OpenStreetMap contributors")
	assert.Contains(t, s, "/api/markers")
	assert.Contains(t, s, "/api/events")
	assert.Contains(t, s, "<svg")
	assert.NotContains(t, s, "{{")
	assert.Less(t, len(s), len(indexTemplate)+len(styleCSS)+len(scriptJS)+len(markerSVG))
}

func TestBuild_DefaultTitle(t *testing.T) {
	page, err := Build("", "")
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(page), DefaultTitle))
}

func TestFavicon(t *testing.T) {
	assert.Contains(t, string(Favicon), "<svg")
}
