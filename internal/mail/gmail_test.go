package mail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/gmail/v1"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestConvertMessage_Multipart(t *testing.T) {
	received := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	m := &gmail.Message{
		Id:           "abc",
		InternalDate: received.UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Transaction alert"},
				{Name: "From", Value: "alerts@icicibank.com"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("INR 120.00 spent")}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>INR 120.00 spent</p>")}},
			},
		},
	}

	msg := convertMessage(m)

	assert.Equal(t, "abc", msg.ID)
	assert.True(t, received.Equal(msg.Date))
	assert.Equal(t, "Transaction alert", msg.Subject)
	assert.Equal(t, "alerts@icicibank.com", msg.From)
	assert.Equal(t, "INR 120.00 spent", msg.PlainBody)
	assert.Equal(t, "<p>INR 120.00 spent</p>", msg.HTMLBody)
}

func TestConvertMessage_HTMLOnlyDerivesPlain(t *testing.T) {
	m := &gmail.Message{
		Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: encode("<div>Merchant:</div><div>CROMA &amp; CO</div>")},
		},
	}

	msg := convertMessage(m)

	assert.Equal(t, "Merchant:\nCROMA & CO", msg.PlainBody)
}

func TestWithAfter(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 10, 16, 23, 0, 0, 0, loc)

	assert.Equal(t, `from:x@y.com after:2026/10/16`, WithAfter("from:x@y.com", day, loc))
	assert.Equal(t, "from:x@y.com", WithAfter("from:x@y.com", time.Time{}, loc))
}
