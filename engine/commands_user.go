package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/groupmod/groupmod/countstore"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/flagstore"
	"github.com/groupmod/groupmod/games/truthordare"
	"github.com/groupmod/groupmod/games/wordgame"
	"github.com/groupmod/groupmod/policy"
	"github.com/groupmod/groupmod/ranking"
)

const (
	leaderboardSize = 10
	topChatters     = 5
	maxPollOptions  = 10
)

func userCommands() []CommandSpec {
	const (
		rankOff  = "Ranking system is disabled!"
		todOff   = "Truth or Dare is disabled!"
		wordsOff = "Word games are disabled!"
	)
	return []CommandSpec{
		{Name: "start", Help: "Check the bot is running", Category: CategoryGeneral, Handler: cmdStart},
		{Name: "commands", Help: "List commands", Category: CategoryGeneral, Handler: cmdCommands},
		{Name: "mcount", Help: "Your message count and top chatters", Category: CategoryGeneral, Handler: cmdMessageCount},
		{Name: "warnings", Help: "Your warning count", Category: CategoryModeration, Handler: cmdWarnings},
		{Name: "report", Args: "<reason>", Help: "Report to the admins", Category: CategoryModeration, Feature: policy.FeatureReportSystem, Disabled: "❌ Report system is disabled", Handler: cmdReport},
		{Name: "rank", Help: "Your rank card", Category: CategoryRanking, Feature: policy.FeatureRanking, Disabled: rankOff, Handler: cmdRank},
		{Name: "leaderboard", Help: "Top 10 users", Category: CategoryRanking, Feature: policy.FeatureRanking, Disabled: rankOff, Handler: cmdLeaderboard},
		{Name: "truthordare", Help: "Start Truth or Dare", Category: CategoryGames, Feature: policy.FeatureTruthOrDare, Disabled: todOff, Handler: cmdTruthOrDare},
		{Name: "tod_join", Help: "Join Truth or Dare", Category: CategoryGames, Feature: policy.FeatureTruthOrDare, Disabled: todOff, Handler: cmdToDJoin},
		{Name: "truth", Help: "Get a truth", Category: CategoryGames, Feature: policy.FeatureTruthOrDare, Disabled: todOff, Handler: cmdDraw(truthordare.KindTruth)},
		{Name: "dare", Help: "Get a dare", Category: CategoryGames, Feature: policy.FeatureTruthOrDare, Disabled: todOff, Handler: cmdDraw(truthordare.KindDare)},
		{Name: "wordgame", Args: "[category]", Help: "Start a word game", Category: CategoryGames, Feature: policy.FeatureWordGames, Disabled: wordsOff, Handler: cmdWordGame},
		{Name: "hint", Help: "Hint for the word game", Category: CategoryGames, Feature: policy.FeatureWordGames, Disabled: wordsOff, Handler: cmdHint},
		{Name: "meme", Help: "Random meme", Category: CategoryFun, Feature: policy.FeatureMeme, Disabled: "❌ Meme feature is disabled!", Handler: cmdMeme},
		{Name: "video", Args: "<quality>", Help: "Random video", Category: CategoryFun, Feature: policy.FeatureVideo, Disabled: "❌ Video feature is disabled!", Handler: cmdVideo},
		{Name: "emoji", Help: "Random emoji combo", Category: CategoryFun, Feature: policy.FeatureRandomEmoji, Disabled: "❌ Random emoji feature is disabled!", Handler: cmdEmoji},
		{Name: "poll", Args: `"Question" "Option 1" "Option 2" ...`, Help: "Create a poll", Category: CategoryFun, Handler: cmdPoll},
	}
}

func cmdWarnings(c *CommandContext) error {
	n := c.GetCount(CounterWarnings, c.MemberKey(), countstore.PeriodTotal)
	if c.Err != nil {
		return c.Err
	}
	limit := c.Config().WarnLimit
	text := fmt.Sprintf("⚠️ You have %d/%d warnings", n, limit)
	switch {
	case n >= limit:
		text += "\nYou have reached the warning limit!"
	case n == limit-1:
		text += "\nBe careful! One more warning reaches the limit."
	}
	if flags := c.GetFlags(flagstore.MemberKey(c.Room.ID, c.User.ID)); len(flags) > 0 {
		text += "\nFlags: " + strings.Join(flags, ", ")
	}
	if c.Err != nil {
		return c.Err
	}
	c.Reply(text)
	return nil
}

func cmdReport(c *CommandContext) error {
	reason := c.ArgText()
	if reason == "" {
		c.Reply("Usage: /report <reason>")
		return nil
	}
	admins, err := c.engine.Admins(c.Ctx, c.Room.ID)
	if err != nil {
		c.Logger.Warn("admin lookup failed", "err", err)
	}
	var mentions []string
	for _, a := range admins {
		if a.Username != "" {
			mentions = append(mentions, "@"+a.Username)
		}
	}
	text := fmt.Sprintf("🚨 Report from %s\nReason: %s", c.User.Mention(), reason)
	if len(mentions) > 0 {
		text += "\n\n" + strings.Join(mentions, " ")
	}
	c.Send(text)
	c.Reply("✅ Report sent to admins")
	return nil
}

var (
	leaderboardKeyboard = Keyboard{{{Text: "🏆 Leaderboard", CallbackID: ButtonLeaderboard}}}
	myRankKeyboard      = Keyboard{{{Text: "🔙 My Rank", CallbackID: ButtonMyRank}}}
)

// Rank card for a user, or false if they have no profile yet.
func (c *ActorContext) rankCard(userID string) (string, bool, error) {
	r := c.Ranking()
	p, err := r.Profile(userID)
	if errors.Is(err, ranking.ErrNotRanked) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	pos, err := r.Rank(userID)
	if err != nil {
		if c.Config().StrictInvariants {
			return "", false, fmt.Errorf("%w: %s has a profile but no leaderboard entry", ranking.ErrInvariant, userID)
		}
		c.Logger.Warn("profile missing from leaderboard", "target", userID)
		pos = 0
	}
	return ranking.Card(p, pos, r.Settings()), true, nil
}

func (c *ActorContext) leaderboard() (string, error) {
	top, err := c.Ranking().Top(leaderboardSize)
	if err != nil {
		return "", err
	}
	return ranking.Board(top), nil
}

const notRanked = "You haven't earned any XP yet!"

func cmdRank(c *CommandContext) error {
	card, ok, err := c.rankCard(c.User.ID)
	if err != nil {
		return err
	}
	if !ok {
		c.Reply(notRanked)
		return nil
	}
	c.ReplyHTML(card, leaderboardKeyboard)
	return nil
}

func cmdLeaderboard(c *CommandContext) error {
	board, err := c.leaderboard()
	if err != nil {
		return err
	}
	c.ReplyHTML(board, myRankKeyboard)
	return nil
}

const noToD = "❌ No active game! Start one with /truthordare"

func cmdTruthOrDare(c *CommandContext) error {
	c.Room.ToD = truthordare.NewSession(c.Now)
	c.Reply(truthordare.StartMessage)
	return nil
}

func cmdToDJoin(c *CommandContext) error {
	s := c.Room.TruthOrDare(c.Now, c.Config().SessionTTL)
	if s == nil {
		c.Reply(noToD)
		return nil
	}
	if s.Join(c.User.ID, c.Now) {
		c.Reply(fmt.Sprintf("✅ %s joined the game!", c.User.Name))
	} else {
		c.Reply(fmt.Sprintf("ℹ️ %s, you're already in the game!", c.User.Name))
	}
	return nil
}

func cmdDraw(kind truthordare.Kind) CommandFunc {
	return func(c *CommandContext) error {
		s := c.Room.TruthOrDare(c.Now, c.Config().SessionTTL)
		item, err := truthordare.Draw(s, c.User.ID, c.engine.Deck, kind, c.Intn, c.Now)
		switch {
		case errors.Is(err, truthordare.ErrNoSession):
			c.Reply(noToD)
			return nil
		case errors.Is(err, truthordare.ErrNotJoined):
			c.Reply("❌ Join the game first with /tod_join")
			return nil
		case errors.Is(err, truthordare.ErrEmptyDeck):
			c.Reply(fmt.Sprintf("❌ No %ss available", kind))
			return nil
		case err != nil:
			return err
		}
		c.Reply(truthordare.PromptMessage(c.User.Name, kind, item))
		return nil
	}
}

func cmdWordGame(c *CommandContext) error {
	cat := c.ArgText()
	s, err := wordgame.Start(c.engine.Words, cat, c.engine.HintBudget, c.Intn, c.Now)
	switch {
	case errors.Is(err, wordgame.ErrUnknownCategory):
		c.Reply(fmt.Sprintf("❌ Unknown category '%s'. Categories: %s", cat, strings.Join(c.engine.Words.Categories(), ", ")))
		return nil
	case errors.Is(err, wordgame.ErrEmptyBank):
		c.Reply("❌ No words available")
		return nil
	case err != nil:
		return err
	}
	c.Room.Word = s
	c.Reply(wordgame.StartMessage(s))
	return nil
}

func cmdHint(c *CommandContext) error {
	s := c.Room.WordGame(c.Now, c.Config().SessionTTL)
	if s == nil {
		c.Reply("❌ No active word game! Start one with /wordgame")
		return nil
	}
	h, err := s.Hint(c.Now)
	if errors.Is(err, wordgame.ErrHintsExhausted) {
		c.Reply("❌ No hints left!")
		return nil
	} else if err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("💡 Hint %d/%d: %s", s.HintsUsed, s.HintBudget, h))
	return nil
}

func cmdMessageCount(c *CommandContext) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Your message count: %d\n\n🏆 Top chatters:", c.Room.Counts[c.User.ID])
	top := c.Room.TopChatters(topChatters)
	if len(top) == 0 {
		b.WriteString("\nNo messages counted yet.")
	}
	for i, t := range top {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, t.Name, t.Count)
	}
	c.Reply(b.String())
	return nil
}

func cmdMeme(c *CommandContext) error {
	url, ok := c.engine.Media.Meme(c.Intn)
	if !ok {
		c.Reply("❌ No memes available")
		return nil
	}
	c.QueueBundle(Bundle{
		Actions:  []Action{SendPhoto{Room: c.Room.ID, URL: url, Caption: c.engine.Media.MemeCaption, ReplyToID: c.MessageID}},
		Fallback: []Action{SendText{Room: c.Room.ID, Text: "❌ Couldn't fetch a meme right now", ReplyToID: c.MessageID}},
	})
	return nil
}

func cmdVideo(c *CommandContext) error {
	qualities := strings.Join(c.engine.Media.Qualities(), ", ")
	q := strings.ToLower(c.Arg(0))
	if q == "" {
		c.Reply(fmt.Sprintf("Usage: /video <quality>\nAvailable: %s", qualities))
		return nil
	}
	v, ok := c.engine.Media.Video(q, c.Intn)
	if !ok {
		c.Reply(fmt.Sprintf("❌ Invalid quality. Use: %s", qualities))
		return nil
	}
	c.QueueBundle(Bundle{
		Actions: []Action{SendVideo{
			Room:      c.Room.ID,
			URL:       v.URL,
			Caption:   fmt.Sprintf("%s (Quality: %s)", v.Caption, q),
			Width:     v.Width,
			Height:    v.Height,
			ReplyToID: c.MessageID,
		}},
		Fallback: []Action{SendText{Room: c.Room.ID, Text: "❌ Couldn't send the video right now", ReplyToID: c.MessageID}},
	})
	return nil
}

func cmdEmoji(c *CommandContext) error {
	c.Reply(c.engine.Media.EmojiCombo(c.Intn))
	return nil
}

func cmdPoll(c *CommandContext) error {
	parts := event.QuotedArgs(c.Command.Args)
	if len(parts) < 3 {
		c.Reply("Usage: /poll \"Question\" \"Option 1\" \"Option 2\" ...\nNeed at least a question and 2 options!")
		return nil
	}
	if len(parts)-1 > maxPollOptions {
		c.Reply(fmt.Sprintf("❌ A poll can have at most %d options", maxPollOptions))
		return nil
	}
	c.Queue(SendPoll{Room: c.Room.ID, Question: parts[0], Options: parts[1:]})
	return nil
}
