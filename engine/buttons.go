package engine

import (
	"github.com/groupmod/groupmod/policy"
)

type ButtonFunc = func(c *ButtonContext) error

const (
	ButtonLeaderboard = "show_leaderboard"
	ButtonMyRank      = "show_my_rank"
)

func DefaultButtons() map[string]ButtonFunc {
	return map[string]ButtonFunc{
		ButtonLeaderboard: buttonLeaderboard,
		ButtonMyRank:      buttonMyRank,
	}
}

// Edits the message carrying the pressed button, or posts a new one if the transport didn't say which message that was.
func (c *ButtonContext) show(text string, kb Keyboard) {
	if c.MessageID == "" {
		c.Queue(SendText{Room: c.Room.ID, Text: text, ParseMode: ParseModeHTML, Keyboard: kb})
		return
	}
	c.Queue(EditMessage{Room: c.Room.ID, MessageID: c.MessageID, Text: text, ParseMode: ParseModeHTML, Keyboard: kb})
}

func buttonLeaderboard(c *ButtonContext) error {
	if !c.Enabled(policy.FeatureRanking) {
		return nil
	}
	board, err := c.leaderboard()
	if err != nil {
		return err
	}
	c.show(board, myRankKeyboard)
	return nil
}

func buttonMyRank(c *ButtonContext) error {
	if !c.Enabled(policy.FeatureRanking) {
		return nil
	}
	card, ok, err := c.rankCard(c.User.ID)
	if err != nil {
		return err
	}
	if !ok {
		card = notRanked
	}
	c.show(card, leaderboardKeyboard)
	return nil
}
