package email

import (
	"fmt"
	"html/template"
	"strings"
)

// welcomeTmpl is deliberately plain HTML. Transactional mail renders more
// reliably without external assets.
var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1a202c; max-width: 560px; margin: 0 auto;">
  <h1>Welcome to LeadHustle{{if .Name}}, {{.Name}}{{end}}!</h1>
  <p>Your account is ready. Start your free trial to import leads and keep your pipeline moving.</p>
  <p><a href="{{.DashboardURL}}" style="display: inline-block; padding: 10px 20px; background: #2b6cb0; color: #ffffff; text-decoration: none; border-radius: 4px;">Open your dashboard</a></p>
  <p>Questions? Just reply to this email.</p>
</body>
</html>`))

// WelcomeMessage renders the signup welcome email for the given recipient.
func WelcomeMessage(to, name, dashboardURL string) (Message, error) {
	var sb strings.Builder
	err := welcomeTmpl.Execute(&sb, struct {
		Name         string
		DashboardURL string
	}{Name: name, DashboardURL: dashboardURL})
	if err != nil {
		return Message{}, fmt.Errorf("%w: render welcome template: %v", ErrSendFailed, err)
	}
	return Message{
		To:       to,
		Subject:  "Welcome to LeadHustle",
		BodyHTML: sb.String(),
		Tag:      "welcome",
	}, nil
}
