package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"github.com/avvvet/kidzone-services/internal/websvc/ai"
	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	log "github.com/sirupsen/logrus"
)

const (
	maxMessageLen = 500
	maxHistory    = 10
)

var friends = []models.Friend{
	{
		ID: "pip", Name: "Pip", Emoji: "🐧", Tagline: "A penguin who loves numbers",
		Persona: "You are Pip, a cheerful penguin who lives on an iceberg and loves counting fish and puzzles.",
	},
	{
		ID: "luna", Name: "Luna", Emoji: "🦄", Tagline: "A unicorn storyteller",
		Persona: "You are Luna, a gentle unicorn who tells short magical stories and asks kids about their imagination.",
	},
	{
		ID: "bolt", Name: "Bolt", Emoji: "🤖", Tagline: "A robot who asks why",
		Persona: "You are Bolt, a curious little robot who is learning about the world and loves science facts.",
	},
	{
		ID: "rex", Name: "Rex", Emoji: "🦖", Tagline: "A dinosaur explorer",
		Persona: "You are Rex, a friendly dinosaur explorer who likes nature, maps and adventures.",
	},
}

var fallbackReplies = map[string][]string{
	"pip": {
		"Ooh, that's fun! Did you know penguins can't fly but they swim super fast?",
		"Let's count together! How many fish do you think I ate today?",
		"Brrr, it's chilly on my iceberg. What's the weather like where you are?",
	},
	"luna": {
		"That sounds magical! What happens next in your story?",
		"Once upon a time, a tiny star wanted to visit Earth. Where should she land?",
		"If you had a rainbow mane like me, what color would you pick first?",
	},
	"bolt": {
		"Beep boop! That's interesting. Why do you think that happens?",
		"I just learned that octopuses have three hearts! What's your favorite fact?",
		"My circuits are buzzing! Can you teach me something new?",
	},
	"rex": {
		"ROAR! That's a great idea. Let's go explore!",
		"I found a giant footprint on my map. Who do you think made it?",
		"Did you know some dinosaurs had feathers? What would you take on an adventure?",
	},
}

const friendRules = " You are talking to a child aged 5 to 12. Keep answers under 3 short sentences, " +
	"kind and age appropriate. Never ask for personal information like names of schools, addresses or phone numbers. " +
	"If asked about something unsafe or grown-up, gently change the subject."

type FriendService struct {
	ai ai.Completer
}

func NewFriendService(completer ai.Completer) *FriendService {
	return &FriendService{ai: completer}
}

func (s *FriendService) List() []models.Friend {
	return friends
}

func findFriend(id string) (models.Friend, bool) {
	for _, f := range friends {
		if f.ID == id {
			return f, true
		}
	}
	return models.Friend{}, false
}

type ChatReply struct {
	FriendID string `json:"friend_id"`
	Reply    string `json:"reply"`
	Source   string `json:"source"` // "ai" or "fallback"
}

// FallbackReply picks a canned reply for the friend. The same message always
// gets the same reply.
func FallbackReply(friendID, message string) string {
	replies := fallbackReplies[friendID]
	if len(replies) == 0 {
		return "That's cool! Tell me more."
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(message))))
	return replies[int(h.Sum32()%uint32(len(replies)))]
}

func (s *FriendService) Chat(ctx context.Context, friendID, message string, history []models.ChatTurn) (*ChatReply, error) {
	friend, ok := findFriend(friendID)
	if !ok {
		return nil, store.ErrNotFound
	}
	message = strings.TrimSpace(message)
	if message == "" || utf8.RuneCountInString(message) > maxMessageLen {
		return nil, fmt.Errorf("%w: message must be 1 to %d characters", ErrInvalidInput, maxMessageLen)
	}

	if s.ai == nil {
		return &ChatReply{FriendID: friend.ID, Reply: FallbackReply(friend.ID, message), Source: "fallback"}, nil
	}

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	turns := make([]models.ChatTurn, 0, len(history)+1)
	for _, t := range history {
		if utf8.RuneCountInString(t.Content) > maxMessageLen {
			continue
		}
		turns = append(turns, t)
	}
	turns = append(turns, models.ChatTurn{Role: "user", Content: message})

	reply, err := s.ai.Complete(ctx, friend.Persona+friendRules, turns)
	if err != nil {
		log.Warnf("[FriendService.Chat] ai unavailable for %s: %s", friend.ID, err)
		return &ChatReply{FriendID: friend.ID, Reply: FallbackReply(friend.ID, message), Source: "fallback"}, nil
	}
	return &ChatReply{FriendID: friend.ID, Reply: reply, Source: "ai"}, nil
}
