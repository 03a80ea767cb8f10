package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/core"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf)

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Juan DelaCruz", Address: "juan@icc.edu"}},
			Subject:      "Welcome",
			TemplateName: "welcome",
			TemplateData: struct{ Name, SchoolID, Email, Password string }{"Juan", "STU-20240601080000", "juan@icc.edu", "jdelacruz123456"},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "ignored"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "jdelacruz123456")
	assert.Contains(t, sent[0].HTMLContent, "STU-20240601080000")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
