package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/eventpass/server/internal/auth"
)

const emailSubject = "Tu enlace de acceso"

type templateData struct {
	Name    string
	Link    string
	Minutes int
}

var emailText = texttemplate.Must(texttemplate.New("text").Parse(
	`Hola{{if .Name}} {{.Name}}{{end}},

Usa este enlace para iniciar sesión:
{{.Link}}

El enlace vence en {{.Minutes}} minutos y solo funciona el último que solicitaste.
Si no pediste este acceso, ignora este mensaje.
`))

var emailHTML = htmltemplate.Must(htmltemplate.New("html").Parse(
	`<p>Hola{{if .Name}} {{.Name}}{{end}},</p>
<p><a href="{{.Link}}">Inicia sesión</a></p>
<p>El enlace vence en {{.Minutes}} minutos y solo funciona el último que solicitaste.</p>
<p>Si no pediste este acceso, ignora este mensaje.</p>
`))

var whatsAppText = texttemplate.Must(texttemplate.New("whatsapp").Parse(
	`Hola{{if .Name}} {{.Name}}{{end}}, este es tu enlace de acceso: {{.Link}} (vence en {{.Minutes}} minutos)`))

func newTemplateData(msg auth.Message, now time.Time) templateData {
	minutes := int(msg.Expiration.Sub(now).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return templateData{
		Name:    strings.TrimSpace(msg.Name),
		Link:    msg.Link,
		Minutes: minutes,
	}
}

func renderEmail(msg auth.Message, now time.Time) (text string, html string, err error) {
	data := newTemplateData(msg, now)
	var tb, hb bytes.Buffer
	if err := emailText.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render email text: %w", err)
	}
	if err := emailHTML.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render email html: %w", err)
	}
	return tb.String(), hb.String(), nil
}

func renderWhatsApp(msg auth.Message, now time.Time) (string, error) {
	var b bytes.Buffer
	if err := whatsAppText.Execute(&b, newTemplateData(msg, now)); err != nil {
		return "", fmt.Errorf("render whatsapp body: %w", err)
	}
	return b.String(), nil
}
