package emailsvc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gymhub/contentdesk/assets"
	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/services/logger"
)

func reviewedMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Downtown", Address: "downtown@gyms.test"}},
		Subject:      "Your upload front.png was reviewed",
		TemplateName: "submission_reviewed",
		TemplateData: map[string]interface{}{
			"GymName":  "Downtown",
			"FileName": "front.png",
			"Format":   "Facility photo",
			"Status":   "needs revision",
			"Notes":    "too dark",
		},
	}
}

func setup(t *testing.T) (*core.Config, core.Logger) {
	logger := logsvc.NewZapLogger(zap.NewNop())
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, logger)
	return core.NewTestConfig(), logger
}

func TestConsoleService(t *testing.T) {
	conf, logger := setup(t)
	svc := NewConsoleServiceMock(conf, logger)

	svc.SendMessages(reviewedMessage(), &core.EmailMessage{Subject: "nobody"})
	svc.Wait()

	sent := svc.Sent()
	require.Len(t, sent, 1, "messages without recipients are dropped")
	assert.Contains(t, sent[0].TextContent, "Hello Downtown")
	assert.Contains(t, sent[0].TextContent, `"front.png" (Facility photo) has been reviewed: needs revision`)
	assert.Contains(t, sent[0].TextContent, "too dark")

	body, err := svc.format(sent[0])
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: ["+conf.AppName+"] Your upload front.png was reviewed")
	assert.Contains(t, body, "To: \"Downtown\" <downtown@gyms.test>")
}

func TestSendgridService(t *testing.T) {
	conf, logger := setup(t)
	conf.SendgridAPIKey = "SG.test"

	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		assert.Equal(t, "Bearer "+conf.SendgridAPIKey, r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()
	defer func(h string) { host = h }(host)
	host = srv.URL

	svc := NewSendgridService(conf, logger)
	svc.SendMessages(reviewedMessage())
	svc.Wait()

	require.NotNil(t, got)
	personalizations := got["personalizations"].([]interface{})
	require.Len(t, personalizations, 1)
	p := personalizations[0].(map[string]interface{})
	assert.Equal(t, "["+conf.AppName+"] Your upload front.png was reviewed", p["subject"])
	content := got["content"].([]interface{})
	require.Len(t, content, 1, "only the text template exists for this message")
	assert.Equal(t, "text/plain", content[0].(map[string]interface{})["type"])
}
