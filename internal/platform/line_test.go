package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

func signLine(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyLineSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)

	assert.True(t, VerifyLineSignature(body, signLine(body, "channel-secret"), "channel-secret"))
	assert.False(t, VerifyLineSignature(body, signLine(body, "other"), "channel-secret"))
	assert.False(t, VerifyLineSignature(body, "", "channel-secret"))
}

func TestParseLine_TextMessage(t *testing.T) {
	body := []byte(`{
		"events": [{
			"type": "message",
			"replyToken": "rt-1",
			"timestamp": 1700000000000,
			"source": {"type": "user", "userId": "U123"},
			"message": {"id": "m1", "type": "text", "text": "สวัสดีครับ"}
		}]
	}`)

	msgs, err := ParseLine(body)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.PlatformLine, msgs[0].Platform)
	assert.Equal(t, "U123", msgs[0].SenderID)
	assert.Equal(t, "สวัสดีครับ", msgs[0].Content)
	assert.Equal(t, "rt-1", msgs[0].ReplyToken)
}

func TestParseLine_StickerAndImage(t *testing.T) {
	body := []byte(`{
		"events": [
			{
				"type": "message",
				"source": {"type": "user", "userId": "U1"},
				"message": {"id": "m1", "type": "sticker", "stickerId": "52002734"}
			},
			{
				"type": "message",
				"source": {"type": "user", "userId": "U1"},
				"message": {"id": "img-9", "type": "image"}
			}
		]
	}`)

	msgs, err := ParseLine(body)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "[sticker:52002734]", msgs[0].Content)
	assert.Equal(t, "[image:img-9]", msgs[1].Content)
	assert.Equal(t, "image", msgs[1].Type)
}

func TestParseLine_IgnoresGroupAndFollowEvents(t *testing.T) {
	body := []byte(`{
		"events": [
			{"type": "follow", "source": {"type": "user", "userId": "U1"}},
			{
				"type": "message",
				"source": {"type": "group", "userId": "U1"},
				"message": {"id": "m1", "type": "text", "text": "group chatter"}
			}
		]
	}`)

	_, err := ParseLine(body)
	assert.ErrorIs(t, err, ErrNoMessage)
}
