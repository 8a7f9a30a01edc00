package rules

import (
	"github.com/groupmod/groupmod/engine"
	"github.com/groupmod/groupmod/games/wordgame"
	"github.com/groupmod/groupmod/policy"
)

var _ engine.MessageRuleFunc = MessageCountRule

func MessageCountRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureMessageCounter) {
		return nil
	}
	c.Room.Count(c.User.ID)
	return nil
}

var _ engine.MessageRuleFunc = RankingRule

// Awards XP for the message and announces every level gained.
func RankingRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureRanking) {
		return nil
	}
	for _, up := range c.Ranking().Update(c.User, c.Message.Text, c.Now) {
		c.Reply(up.Message())
	}
	return nil
}

var _ engine.MessageRuleFunc = AutoResponseRule

func AutoResponseRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureAutoResponses) {
		return nil
	}
	replies, ok := c.Policy().MatchResponse(c.Message.Text)
	if !ok || len(replies) == 0 {
		return nil
	}
	c.Reply(replies[c.Intn(len(replies))])
	return nil
}

var greetingReplies = []string{
	"Hello {name}! 👋",
	"Hey {name}! How are you?",
	"Hi there, {name}! 😊",
}

var _ engine.MessageRuleFunc = GreetingRule

func GreetingRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureGreetUsers) || !IsGreeting(c.Message.Text) {
		return nil
	}
	c.Reply(fill(greetingReplies[c.Intn(len(greetingReplies))], c.User.Name))
	return nil
}

var _ engine.MessageRuleFunc = WordGuessRule

// Treats every message as a guess while the room has a word game running.
func WordGuessRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureWordGames) {
		return nil
	}
	s := c.Room.WordGame(c.Now, c.Config().SessionTTL)
	if s == nil {
		return nil
	}
	res := s.Guess(c.Message.Text, c.Now)
	if res.Correct {
		c.Room.Word = nil
		c.Reply(wordgame.CorrectMessage(s))
		return nil
	}
	c.Reply(wordgame.MissMessage(s, res))
	return nil
}
