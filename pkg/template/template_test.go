package template

import (
	"testing"

	"github.com/dukex/journey/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_PlainTextIsUntouched(t *testing.T) {
	result, err := Render("Book your next match", nil)
	require.NoError(t, err)
	assert.Equal(t, "Book your next match", result)
}

func TestRender_SimpleExpression(t *testing.T) {
	data := map[string]any{
		"contact": map[string]any{
			"contact_type": "vip",
		},
	}

	result, err := Render("Hello {{ .contact.contact_type | upper }}", data)
	require.NoError(t, err)
	assert.Equal(t, "Hello VIP", result)

	result, err = Render("Hi {{ title .contact.contact_type }}", data)
	require.NoError(t, err)
	assert.Equal(t, "Hi Vip", result)
}

func TestRender_MissingKeysRenderEmpty(t *testing.T) {
	data := map[string]any{"contact": map[string]any{}}

	result, err := Render("Hi {{ .contact.first_name }}!", data)
	require.NoError(t, err)
	assert.Equal(t, "Hi !", result)

	result, err = Render(`Hi {{ default "player" .contact.first_name }}!`, data)
	require.NoError(t, err)
	assert.Equal(t, "Hi player!", result)
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, err := Render("Hi {{ .contact.name ", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestRenderAction(t *testing.T) {
	journey := &models.Journey{ID: "j1", Name: "Win-back"}
	contact := models.SimulationContact{ContactType: "member", Tags: "padel"}

	action := models.ActionConfig{
		Channel:  models.ChannelEmail,
		Title:    "{{ .journey.name }}: we miss you",
		Body:     "As a {{ .contact.contact_type }} you get 10% off",
		CTALabel: "Book",
		CTAURL:   "https://example.com/book?c={{ .contact_id }}",
	}

	rendered, err := RenderAction(action, ActionData(journey, "c-42", contact))
	require.NoError(t, err)
	assert.Equal(t, "Win-back: we miss you", rendered.Title)
	assert.Equal(t, "As a member you get 10% off", rendered.Body)
	assert.Equal(t, "Book", rendered.CTALabel)
	assert.Equal(t, "https://example.com/book?c=c-42", rendered.CTAURL)
	assert.Equal(t, models.ChannelEmail, rendered.Channel)
}

func TestRenderAction_ErrorKeepsOriginal(t *testing.T) {
	action := models.ActionConfig{Title: "{{ broken", Body: "ok"}

	rendered, err := RenderAction(action, nil)
	require.Error(t, err)
	assert.Equal(t, action, rendered)
}
