package reset

import (
	"bytes"
	htmltemplate "html/template"
	"io"
	"text/template"
)

const subject = "Password reset"

var textBody = template.Must(template.New("text").Parse(`Hello,

Somebody requested a password reset for {{.Email}}.
Follow the link to set a new password: {{.Link}}

The link is valid until {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}.
If it was not you, just ignore this email.
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<p>Hello,</p>
<p>Somebody requested a password reset for {{.Email}}.</p>
<p><a href="{{.Link}}">Set a new password</a></p>
<p>The link is valid until {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}.<br>If it was not you, just ignore this email.</p>
`))

type executor interface {
	Execute(wr io.Writer, data any) error
}

func render(t executor, data letterData) (string, error) {
	buf := &bytes.Buffer{}
	if err := t.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
