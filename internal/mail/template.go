package mail

import (
	"bytes"
	"html/template"
)

var activationTemplate = template.Must(template.New("activation").Parse(`<div>
	<h1>Account activation</h1>
	<p>Follow the link to activate your account:</p>
	<a href="{{.Link}}">{{.Link}}</a>
</div>`))

func ActivationSubject(apiURL string) string {
	return "Account activation on " + apiURL
}

// RenderActivationBody returns the HTML body of the activation mail.
func RenderActivationBody(link string) (string, error) {
	var buf bytes.Buffer
	if err := activationTemplate.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
