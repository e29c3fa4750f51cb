package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

func TestParseWeb(t *testing.T) {
	msgs, err := ParseWeb([]byte(`{"customer_id":"visitor-1","name":"Anon","content":"Hello"}`))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.PlatformWeb, msgs[0].Platform)
	assert.Equal(t, "visitor-1", msgs[0].SenderID)
	assert.Equal(t, "Anon", msgs[0].SenderName)
	assert.Equal(t, "text", msgs[0].Type)
	assert.True(t, msgs[0].Valid())
}

func TestParseWeb_MissingFields(t *testing.T) {
	_, err := ParseWeb([]byte(`{"name":"Anon","content":"Hello"}`))
	assert.Error(t, err)

	_, err = ParseWeb([]byte(`{"customer_id":"visitor-1"}`))
	assert.Error(t, err)
}
