package app

import (
	"context"
	"fmt"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// ChannelSender posts to the public announcement channel and returns an
// opaque reference to the posted message.
type ChannelSender interface {
	Post(ctx context.Context, text string, choices ...domain.Choice) (string, error)
}

// ChannelBroadcast announces newly authored tests: the test summary with a
// deep link, the first two questions as samples, and a teaser for the rest.
// The reference of the main post is stored against the test.
type ChannelBroadcast struct {
	store   Store
	channel ChannelSender
	botName string
}

func NewChannelBroadcast(store Store, channel ChannelSender, botName string) *ChannelBroadcast {
	return &ChannelBroadcast{store: store, channel: channel, botName: botName}
}

// Publish implements Publisher. It only posts when the test has questions;
// a broadcast-worthy test is a playable one.
func (b *ChannelBroadcast) Publish(ctx context.Context, testID int64) error {
	test, err := b.store.GetTest(ctx, testID)
	if err != nil {
		return err
	}
	questions, err := b.store.ListQuestions(ctx, testID)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("test %d has no questions to announce", testID)
	}

	deepLink := domain.Choice{
		Label: "🚀 Testni boshlash",
		Data:  fmt.Sprintf("test_%d", testID),
		URL:   fmt.Sprintf("https://t.me/%s?start=test_%d", b.botName, testID),
	}
	ref, err := b.channel.Post(ctx, msgChannelAnnouncement(test, len(questions)), deepLink)
	if err != nil {
		return err
	}

	if err := b.store.SetTestBroadcast(ctx, testID, ref); err != nil {
		return err
	}

	// Sample questions follow the pinned announcement; their refs are not
	// tracked.
	if _, err := b.channel.Post(ctx, msgChannelSamplesHeader); err != nil {
		return err
	}
	for i, q := range questions {
		if i == 2 {
			break
		}
		if _, err := b.channel.Post(ctx, msgChannelSampleQuestion(i+1, q)); err != nil {
			return err
		}
	}
	if remaining := len(questions) - 2; remaining > 0 {
		if _, err := b.channel.Post(ctx, msgChannelRemaining(remaining)); err != nil {
			return err
		}
	}
	return nil
}
