package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderActivationBody(t *testing.T) {
	body, err := RenderActivationBody("https://api.example.com/api/auth/activate/abc")
	require.NoError(t, err)

	assert.Contains(t, body, `href="https://api.example.com/api/auth/activate/abc"`)
	assert.Contains(t, body, "Account activation")
}

func TestRenderActivationBody_EscapesLink(t *testing.T) {
	body, err := RenderActivationBody(`https://x/"><script>alert(1)</script>`)
	require.NoError(t, err)

	assert.NotContains(t, body, "<script>")
}

func TestActivationSubject(t *testing.T) {
	assert.Equal(t, "Account activation on https://api.example.com", ActivationSubject("https://api.example.com"))
}
