package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/residency"
	"github.com/iannini25/auxiliosindico-web/tests"
)

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(conf, logger)
	svc := NewConsoleServiceMock(conf, logger)

	welcome := &core.EmailMessage{
		To:           []mail.Address{{Name: "Ana", Address: "ana@x.com"}},
		Subject:      "Bem-vindo(a)",
		TemplateName: "welcome",
		TemplateData: residency.Profile{Name: "Ana", Apt: 604},
	}
	svc.SendMessages(
		welcome,
		&core.EmailMessage{BodyStr: "no recipients"},
		&core.EmailMessage{To: welcome.To, TemplateName: "lol"},
		&core.EmailMessage{To: welcome.To, BodyStr: "plain"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].TextContent, "Olá, Ana!")
	assert.Contains(t, sent[0].HTMLContent, "<strong>604</strong>")
	assert.Equal(t, "plain", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)

	require.Len(t, logger.Messages(), 1, "the unknown template is logged")
	assert.Contains(t, logger.Messages()[0], "rendering email")
}
