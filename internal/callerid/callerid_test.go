package callerid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweeney/callwatch/internal/callerid"
)

func TestNewNormalizesUnknownMarker(t *testing.T) {
	c := callerid.New("<unknown>", "<unknown>")
	assert.Equal(t, "", c.Name)
	assert.Equal(t, "", c.Number)

	c = callerid.New("Andrew Garza", "201")
	assert.Equal(t, "Andrew Garza", c.Name)
	assert.Equal(t, "201", c.Number)
}

func TestReplacementNormalizes(t *testing.T) {
	c := callerid.New("Andrew Garza", "201")

	replaced := c.WithName("<unknown>").WithNumber("202")
	assert.Equal(t, "", replaced.Name)
	assert.Equal(t, "202", replaced.Number)

	// Original value untouched.
	assert.Equal(t, "Andrew Garza", c.Name)
	assert.Equal(t, "201", c.Number)
}

func TestStructuralEquality(t *testing.T) {
	a := callerid.New("Andrew Garza", "201").WithCode(150010001)
	b := callerid.New("Andrew Garza", "201").WithCode(150010001)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, b.WithPrivacy(callerid.PrivacyPublic))
}

func TestString(t *testing.T) {
	c := callerid.New(`Bob "The Builder"`, "+31501234567").
		WithCode(12668).
		WithPrivacy(callerid.PrivacyPublic)
	want := "\"Bob \\\"The Builder\\\"\" <+31501234567;pub;code=12668>"
	assert.Equal(t, want, c.String())
}

func TestParsePresentation(t *testing.T) {
	assert.Equal(t, callerid.PrivacyPublic, callerid.ParsePresentation("allowed_not_screened"))
	assert.Equal(t, callerid.PrivacyPublic, callerid.ParsePresentation("allowed_passed_screen"))
	assert.Equal(t, callerid.PrivacyPrivate, callerid.ParsePresentation("prohib_passed_screen"))
	assert.Equal(t, callerid.PrivacyUnknown, callerid.ParsePresentation("unavailable"))
	assert.Equal(t, callerid.PrivacyUnknown, callerid.ParsePresentation(""))
}
