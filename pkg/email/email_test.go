package email_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadhustle/platform/pkg/email"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	valid := email.Message{To: "jane@example.com", Subject: "Hi", BodyHTML: "<p>hi</p>"}
	assert.NoError(t, valid.Validate())

	for name, msg := range map[string]email.Message{
		"missing recipient":   {Subject: "Hi", BodyHTML: "x"},
		"malformed recipient": {To: "not-an-email", Subject: "Hi", BodyHTML: "x"},
		"empty subject":       {To: "jane@example.com", BodyHTML: "x"},
		"empty body":          {To: "jane@example.com", Subject: "Hi"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, msg.Validate(), email.ErrInvalidParams)
		})
	}
}

func TestDevSender_Send(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := email.NewDevSender(dir)

	msg, err := email.WelcomeMessage("jane@example.com", "Jane", "https://leadhustle.pro/dashboard")
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), msg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var html string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".html" {
			raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			html = string(raw)
		}
	}
	assert.Contains(t, html, "Welcome to LeadHustle, Jane!")
	assert.Contains(t, html, "https://leadhustle.pro/dashboard")
}

func TestWelcomeMessage_EscapesName(t *testing.T) {
	t.Parallel()

	msg, err := email.WelcomeMessage("jane@example.com", `<script>alert(1)</script>`, "https://leadhustle.pro")
	require.NoError(t, err)
	assert.False(t, strings.Contains(msg.BodyHTML, "<script>"))
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("falls back to dev sender without token", func(t *testing.T) {
		t.Parallel()
		sender, err := email.NewFromConfig(email.Config{DevDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &email.DevSender{}, sender)
	})

	t.Run("rejects invalid sender identity", func(t *testing.T) {
		t.Parallel()
		_, err := email.NewFromConfig(email.Config{
			PostmarkServerToken: "token",
			SenderEmail:         "nope",
			SupportEmail:        "support@leadhustle.pro",
		})
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}
