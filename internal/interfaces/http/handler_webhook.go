package http

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/platform"
)

// VerifyGraphWebhook handles the GET handshake Meta performs when a
// webhook URL is registered for a Facebook or Instagram app.
func (h *Handler) VerifyGraphWebhook(platformName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		cred, err := h.credentials.ActiveForPlatform(c.Request.Context(), platformName)
		if err != nil || cred == nil {
			log.Printf("[Webhook] %s handshake rejected: no active credential", platformName)
			c.String(http.StatusForbidden, "Forbidden")
			return
		}
		if mode != "subscribe" || token != cred.VerifyToken {
			log.Printf("[Webhook] %s handshake rejected: verify token mismatch", platformName)
			c.String(http.StatusForbidden, "Forbidden")
			return
		}
		c.String(http.StatusOK, challenge)
	}
}

func (h *Handler) HandleFacebookWebhook(c *gin.Context) {
	h.handleGraphWebhook(c, entities.PlatformFacebook, platform.ParseFacebook)
}

func (h *Handler) HandleInstagramWebhook(c *gin.Context) {
	h.handleGraphWebhook(c, entities.PlatformInstagram, platform.ParseInstagram)
}

func (h *Handler) handleGraphWebhook(c *gin.Context, platformName string, parse func([]byte) ([]platform.InboundMessage, error)) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	// Verification failures are the one case a webhook rejects; anything
	// after this point always acks.
	cred, credErr := h.credentials.ActiveForPlatform(c.Request.Context(), platformName)
	if credErr == nil && cred != nil && cred.ChannelSecret != "" {
		sig := c.GetHeader("X-Hub-Signature-256")
		if !platform.VerifyGraphSignature(body, sig, cred.ChannelSecret) {
			log.Printf("[Webhook] %s signature verification failed", platformName)
			c.String(http.StatusForbidden, "Forbidden")
			return
		}
	}

	messages, err := parse(body)
	if err != nil {
		log.Printf("[Webhook] %s parse error: %v", platformName, err)
		c.Status(http.StatusOK)
		return
	}
	h.dispatch(messages)
	c.Status(http.StatusOK)
}

func (h *Handler) HandleLineWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	cred, credErr := h.credentials.ActiveForPlatform(c.Request.Context(), entities.PlatformLine)
	if credErr == nil && cred != nil && cred.ChannelSecret != "" {
		sig := c.GetHeader("X-Line-Signature")
		if !platform.VerifyLineSignature(body, sig, cred.ChannelSecret) {
			log.Println("[Webhook] line signature verification failed")
			c.String(http.StatusForbidden, "Forbidden")
			return
		}
	}

	messages, err := platform.ParseLine(body)
	if err != nil {
		log.Printf("[Webhook] line parse error: %v", err)
		c.Status(http.StatusOK)
		return
	}
	h.dispatch(messages)
	c.Status(http.StatusOK)
}

func (h *Handler) HandleTelegramWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	secret := ""
	cred, credErr := h.credentials.ActiveForPlatform(c.Request.Context(), entities.PlatformTelegram)
	if credErr == nil && cred != nil {
		secret = cred.ChannelSecret
	}
	if !platform.VerifyTelegramToken(c.GetHeader("X-Telegram-Bot-Api-Secret-Token"), secret) {
		log.Println("[Webhook] telegram secret token mismatch")
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	messages, err := platform.ParseTelegram(body)
	if err != nil {
		log.Printf("[Webhook] telegram parse error: %v", err)
		c.Status(http.StatusOK)
		return
	}
	h.dispatch(messages)
	c.Status(http.StatusOK)
}

// HandleWebMessage accepts messages from the embedded site widget. It has
// no signature scheme, so unlike the platform webhooks a malformed payload
// is reported back to the caller.
func (h *Handler) HandleWebMessage(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Unable to read request body")
		return
	}

	messages, err := platform.ParseWeb(body)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.dispatch(messages)
	respondOK(c, http.StatusOK, gin.H{"accepted": len(messages)})
}

// dispatch hands parsed messages to the message service off the request
// goroutine so the platform gets its acknowledgement immediately.
func (h *Handler) dispatch(messages []platform.InboundMessage) {
	for _, msg := range messages {
		if !msg.Valid() {
			continue
		}
		m := msg
		go func() {
			if err := h.messageService.HandleInbound(context.Background(), m); err != nil {
				log.Printf("[Webhook] inbound processing failed (%s/%s): %v", m.Platform, m.SenderID, err)
			}
		}()
	}
}
