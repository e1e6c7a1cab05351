package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/iannini25/auxiliosindico-web/fs"
)

func TestEmailMessage_Render(t *testing.T) {
	cache, err := parseTemplates(appfs.FS, true)
	require.NoError(t, err)
	templates = cache

	conf := NewTestConfig()
	data := struct {
		Name string
		Apt  int
	}{Name: "Ana", Apt: 604}

	tests := []struct {
		name     string
		msg      EmailMessage
		wantErr  bool
		wantText string
		wantHTML string
	}{
		{name: "plain body", msg: EmailMessage{BodyStr: "hi"}, wantText: "hi"},
		{name: "unknown template", msg: EmailMessage{TemplateName: "lol"}, wantErr: true},
		{name: "welcome", msg: EmailMessage{TemplateName: "welcome", TemplateData: data}, wantText: "604", wantHTML: "<strong>604</strong>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.msg.To = []mail.Address{{Address: "ana@x.com"}}
			err := tt.msg.Render(conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.msg.HasContent())
			assert.Contains(t, tt.msg.TextContent, tt.wantText)
			assert.Contains(t, tt.msg.HTMLContent, tt.wantHTML)
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"604", "604"},
		{" 6-0 4 ", "604"},
		{"+55 (11) 9 8765-4321", "5511987654321"},
		{"abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DigitsOnly(tt.in))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "Sug", TruncateRunes("Sugestão", 3))
	assert.Equal(t, "Sugestã", TruncateRunes("Sugestão", 7))
	assert.Equal(t, "Sugestão", TruncateRunes("Sugestão", 120))
	assert.Equal(t, "", TruncateRunes("Sugestão", 0))
}
