package usecases

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type fakeConversationSource struct {
	convs []entities.Conversation
}

func (f *fakeConversationSource) All(context.Context) ([]entities.Conversation, error) {
	return f.convs, nil
}

type fakeThreadSink struct {
	threads map[string]*entities.Thread
	upserts int
}

func newFakeThreadSink() *fakeThreadSink {
	return &fakeThreadSink{threads: map[string]*entities.Thread{}}
}

func (f *fakeThreadSink) Upsert(_ context.Context, t *entities.Thread) error {
	f.upserts++
	copied := *t
	f.threads[t.SenderID+"|"+t.Platform] = &copied
	return nil
}

type fakeCredentialLookup struct {
	byPlatform map[string]*entities.Credential
	calls      int
}

func (f *fakeCredentialLookup) ActiveForPlatform(_ context.Context, platform string) (*entities.Credential, error) {
	f.calls++
	return f.byPlatform[platform], nil
}

func at(offset int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)
}

func customerMsg(content string, offset int) entities.Message {
	return entities.Message{Sender: entities.SenderCustomer, Content: content, Type: "text", Timestamp: at(offset)}
}

func aiMsg(content string, offset int) entities.Message {
	return entities.Message{Sender: entities.SenderAI, Content: content, Type: "text", Timestamp: at(offset)}
}

func rebuildFixture() (*fakeConversationSource, *fakeThreadSink, *fakeCredentialLookup) {
	source := &fakeConversationSource{convs: []entities.Conversation{
		{
			ID: 1, CustomerID: "U1", Platform: entities.PlatformLine, Status: entities.StatusResolved,
			Messages: []entities.Message{
				customerMsg("I'd like to order 2 tumblers", 0),
				aiMsg("Sure, your reference is #100234", 1),
				customerMsg("thanks", 2),
			},
		},
		{
			ID: 2, CustomerID: "U1", Platform: entities.PlatformLine, Status: entities.StatusActive,
			Messages: []entities.Message{
				customerMsg("one more question", 60),
				aiMsg("go ahead", 61),
			},
		},
		{
			ID: 3, CustomerID: "U2", Platform: entities.PlatformTelegram, Status: entities.StatusClosed,
			Messages: []entities.Message{
				customerMsg("hello?", 5),
			},
		},
	}}
	sink := newFakeThreadSink()
	creds := &fakeCredentialLookup{byPlatform: map[string]*entities.Credential{
		entities.PlatformLine:     {ID: 11, Platform: entities.PlatformLine},
		entities.PlatformTelegram: {ID: 22, Platform: entities.PlatformTelegram},
	}}
	return source, sink, creds
}

func TestThreadRebuilder_GroupsAcrossConversations(t *testing.T) {
	source, sink, creds := rebuildFixture()
	rebuilder := NewThreadRebuilder(source, sink, creds)

	written, err := rebuilder.Rebuild(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	lineThread := sink.threads["U1|"+entities.PlatformLine]
	require.NotNil(t, lineThread)
	// Both LINE conversations for U1 merge into one thread.
	assert.Equal(t, 5, lineThread.MessageCount)
	assert.Equal(t, 11, lineThread.BotID)
	assert.Equal(t, at(0), lineThread.FirstMessageAt)
	assert.Equal(t, at(61), lineThread.LastMessageAt)
	require.Len(t, lineThread.Orders, 1)
	assert.Equal(t, entities.OutcomeOrdered, lineThread.Outcome)

	tgThread := sink.threads["U2|"+entities.PlatformTelegram]
	require.NotNil(t, tgThread)
	assert.Equal(t, entities.OutcomeNoResponse, tgThread.Outcome)
	assert.Equal(t, 22, tgThread.BotID)
}

func TestThreadRebuilder_Idempotent(t *testing.T) {
	source, sink, creds := rebuildFixture()
	rebuilder := NewThreadRebuilder(source, sink, creds)

	first, err := rebuilder.Rebuild(context.Background(), nil)
	require.NoError(t, err)
	firstState := map[string]entities.Thread{}
	for k, v := range sink.threads {
		firstState[k] = *v
	}

	second, err := rebuilder.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, sink.threads, first)
	for k, v := range sink.threads {
		assert.Equal(t, firstState[k], *v)
	}
}

func TestThreadRebuilder_OrderDetection(t *testing.T) {
	source := &fakeConversationSource{convs: []entities.Conversation{
		{
			ID: 1, CustomerID: "C1", Platform: entities.PlatformWeb,
			Messages: []entities.Message{
				customerMsg("my Order arrived broken", 0),
				customerMsg("ref #982211 from last week", 1),
				// AI replies never count as orders, whatever they contain.
				aiMsg("sorry about your order #982211", 2),
			},
		},
	}}
	sink := newFakeThreadSink()
	rebuilder := NewThreadRebuilder(source, sink, &fakeCredentialLookup{})

	_, err := rebuilder.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	thread := sink.threads["C1|"+entities.PlatformWeb]
	require.NotNil(t, thread)
	require.Len(t, thread.Orders, 2)
	assert.Equal(t, "Order", thread.Orders[0].Reference)
	assert.Equal(t, "#982211", thread.Orders[1].Reference)
	assert.Equal(t, "ref #982211 from last week", thread.Orders[1].Excerpt)
}

func TestThreadRebuilder_ExcerptKeepsRunesIntact(t *testing.T) {
	long := "#98765 " + strings.Repeat("ขอบคุณมาก", 30)
	source := &fakeConversationSource{convs: []entities.Conversation{
		{
			ID: 1, CustomerID: "C9", Platform: entities.PlatformWeb,
			Messages: []entities.Message{customerMsg(long, 0)},
		},
	}}
	sink := newFakeThreadSink()
	rebuilder := NewThreadRebuilder(source, sink, &fakeCredentialLookup{})

	_, err := rebuilder.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	thread := sink.threads["C9|"+entities.PlatformWeb]
	require.NotNil(t, thread)
	require.Len(t, thread.Orders, 1)
	assert.True(t, utf8.ValidString(thread.Orders[0].Excerpt))
	assert.LessOrEqual(t, len(thread.Orders[0].Excerpt), 120)
}

func TestThreadRebuilder_OutcomeClassification(t *testing.T) {
	// >= 5 messages with replies but no order: interested.
	source := &fakeConversationSource{convs: []entities.Conversation{
		{
			ID: 1, CustomerID: "C2", Platform: entities.PlatformWeb,
			Messages: []entities.Message{
				customerMsg("hi", 0), aiMsg("hello", 1),
				customerMsg("price?", 2), aiMsg("120 baht", 3),
				customerMsg("hmm", 4),
			},
		},
		{
			ID: 2, CustomerID: "C3", Platform: entities.PlatformWeb,
			Messages: []entities.Message{
				customerMsg("hi", 0), aiMsg("hello", 1),
			},
		},
	}}
	sink := newFakeThreadSink()
	rebuilder := NewThreadRebuilder(source, sink, &fakeCredentialLookup{})

	_, err := rebuilder.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, entities.OutcomeInterested, sink.threads["C2|"+entities.PlatformWeb].Outcome)
	assert.Equal(t, entities.OutcomeGeneral, sink.threads["C3|"+entities.PlatformWeb].Outcome)
}

func TestThreadRebuilder_ProgressReporting(t *testing.T) {
	source, sink, creds := rebuildFixture()
	rebuilder := NewThreadRebuilder(source, sink, creds)

	var reports [][2]int
	_, err := rebuilder.Rebuild(context.Background(), func(processed, total int) {
		reports = append(reports, [2]int{processed, total})
	})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, [2]int{1, 3}, reports[0])
	assert.Equal(t, [2]int{3, 3}, reports[2])
}
