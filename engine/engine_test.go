package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/groupmod/groupmod/countstore"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/flagstore"
	"github.com/groupmod/groupmod/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bob   = event.User{ID: "u2", Name: "Bob", Username: "bob"}
	carol = event.User{ID: "u3", Name: "Carol"}
)

func boolPtr(b bool) *bool { return &b }

func cmdEnv(u event.User, name string, args ...string) *event.Envelope {
	return &event.Envelope{
		Type: event.TypeCommand,
		Command: &event.Command{
			Room:      "room1",
			RoomTitle: "Test Room",
			User:      u,
			Name:      name,
			Args:      args,
			MessageID: "m-" + name,
		},
	}
}

func msgEnv(u event.User, id, text string) *event.Envelope {
	return &event.Envelope{
		Type: event.TypeMessage,
		Message: &event.TextMessage{
			Room:      "room1",
			RoomTitle: "Test Room",
			User:      u,
			Text:      text,
			MessageID: id,
		},
	}
}

func lastText(tr *CaptureTransport) string {
	texts := tr.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func TestAdminGate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "disable", "meme")))
	assert.Equal("❌ Only admins can use /disable", lastText(tr))
	assert.True(eng.Policy.Enabled(policy.FeatureMeme))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "disable", "meme")))
	assert.Equal("❌ Feature 'meme' disabled", lastText(tr))
	assert.False(eng.Policy.Enabled(policy.FeatureMeme))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "enable", "nope")))
	assert.Contains(lastText(tr), "❌ Unknown feature 'nope'. Available features:\nanti_spam\n")

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "meme")))
	assert.Equal("❌ Meme feature is disabled!", lastText(tr))
}

func TestAdminHintSkipsRoster(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()
	roster := eng.Roster.(*StaticRoster)

	env := cmdEnv(carol, "banword", "spoiler")
	env.Command.IsAdmin = boolPtr(true)
	assert.NoError(eng.ProcessEvent(ctx, env))
	assert.Equal("✅ Added 'spoiler' to banned words", lastText(tr))
	assert.Equal(0, roster.Calls)

	// roster results are cached
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "banword", "x")))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "banword", "y")))
	assert.Equal(1, roster.Calls)
	assert.Equal([]string{"badword1", "badword2", "spoiler"}, eng.Policy.BannedWords())
}

func TestBlockDomainIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "blockdomain", "https://www.X.com/path")))
	assert.Equal("✅ Added x.com to blocked list", lastText(tr))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "blockdomain", "x.com")))
	assert.Equal("ℹ️ x.com is already blocked", lastText(tr))
	assert.Equal([]string{"download.com", "malware.site", "x.com"}, eng.Policy.LinkPolicy().Blocked)

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "unblockdomain", "x.com")))
	assert.Equal("✅ Removed x.com from blocked list", lastText(tr))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "unblockdomain", "x.com")))
	assert.Equal("ℹ️ x.com wasn't blocked", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "blockdomain")))
	assert.Equal("Usage: /blockdomain <domain>", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "setlinkmode", "loose")))
	assert.Equal("❌ Invalid mode. Use 'strict', 'whitelist', 'blacklist'", lastText(tr))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "setlinkmode", "BLACKLIST")))
	assert.Equal("✅ Link mode set to: blacklist", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "setlinkoption", "allow_subdomains", "on")))
	assert.True(eng.Policy.LinkPolicy().AllowSubdomains)

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "domainlist")))
	assert.Contains(lastText(tr), "Mode: blacklist")
	assert.Contains(lastText(tr), "✅ allow_subdomains")
}

func TestResponsesCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "addresponse", `"good`, `night"`, `"sleep`, `well"`)))
	assert.Equal("✅ Response added for pattern: good night", lastText(tr))
	replies, ok := eng.Policy.MatchResponse("GOOD NIGHT all")
	assert.True(ok)
	assert.Equal([]string{"sleep well"}, replies)

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "addresponse", `"(broken"`, `"x"`)))
	assert.Contains(lastText(tr), "❌ invalid response pattern")

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "delresponse", `"good`, `night"`)))
	assert.Equal("✅ Removed response for pattern: good night", lastText(tr))
}

func TestWordGameCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "hint")))
	assert.Equal("❌ No active word game! Start one with /wordgame", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "wordgame", "dinosaurs")))
	assert.Equal("❌ Unknown category 'dinosaurs'. Categories: animals, science, tech, vocabulary", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "wordgame", "animals")))
	room := eng.Rooms.Get("room1")
	require.NotNil(t, room.Word)
	assert.Equal("giraffe", room.Word.Word)
	assert.Contains(lastText(tr), "New Word Game Started!")

	for i, want := range []string{
		"💡 Hint 1/3: The word has 7 letters",
		"💡 Hint 2/3: It starts with 'g'",
		"💡 Hint 3/3: Category: animals",
		"❌ No hints left!",
	} {
		assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "hint")))
		assert.Equal(want, lastText(tr), "hint %d", i)
	}
}

func TestTruthOrDareCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "truth")))
	assert.Equal(noToD, lastText(tr))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "tod_join")))
	assert.Equal(noToD, lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "truthordare")))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "dare")))
	assert.Equal("❌ Join the game first with /tod_join", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "tod_join")))
	assert.Equal("✅ Bob joined the game!", lastText(tr))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "tod_join")))
	assert.Equal("ℹ️ Bob, you're already in the game!", lastText(tr))
	assert.Equal([]string{"u2"}, eng.Rooms.Get("room1").ToD.Players)

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "dare")))
	assert.Contains(lastText(tr), "Bob, your dare:\n\n"+eng.Deck.Dares[0])

	// a new start resets the players
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(carol, "truthordare")))
	assert.Empty(eng.Rooms.Get("room1").ToD.Players)
}

func TestRankAndButtons(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "rank")))
	assert.Equal(notRanked, lastText(tr))

	eng.Ranking.Update(bob, "one two", eng.Clock())
	eng.Ranking.Update(carol, "one two three four", eng.Clock())

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "rank")))
	sent := tr.OfKind(KindSendText)
	card := sent[len(sent)-1].(SendText)
	assert.Equal(ParseModeHTML, card.ParseMode)
	assert.Contains(card.Text, "RANK #2")
	assert.Equal(leaderboardKeyboard, card.Keyboard)
	assert.Equal("m-rank", card.ReplyToID)

	press := &event.Envelope{Type: event.TypeButton, Button: &event.ButtonPress{
		Room: "room1", User: bob, CallbackID: ButtonLeaderboard, MessageID: "m-rank-reply",
	}}
	assert.NoError(eng.ProcessEvent(ctx, press))
	edits := tr.OfKind(KindEditMessage)
	require.Len(t, edits, 1)
	edit := edits[0].(EditMessage)
	assert.Equal("m-rank-reply", edit.MessageID)
	assert.Contains(edit.Text, "1. Carol - Level 1 (3 XP)\n2. Bob (@bob) - Level 1 (2 XP)")
	assert.Equal(myRankKeyboard, edit.Keyboard)

	press.Button.CallbackID = ButtonMyRank
	assert.NoError(eng.ProcessEvent(ctx, press))
	edits = tr.OfKind(KindEditMessage)
	require.Len(t, edits, 2)
	assert.Contains(edits[1].(EditMessage).Text, "<b>Bob</b>")

	press.Button.CallbackID = "something_else"
	assert.NoError(eng.ProcessEvent(ctx, press))
	assert.Len(tr.OfKind(KindEditMessage), 2)

	assert.NoError(eng.Policy.SetFeature(policy.FeatureRanking, false))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "leaderboard")))
	assert.Equal("Ranking system is disabled!", lastText(tr))
}

func TestDeleteFailureSkipsNotice(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()
	eng.Rules = RuleSet{MessageRules: []MessageRuleFunc{
		func(c *MessageContext) error {
			c.Warn()
			c.AddFlag(FlagSpam)
			c.DeleteWithNotice("spam", "removed")
			return nil
		},
		func(c *MessageContext) error {
			c.Reply("still here")
			return nil
		},
	}}
	tr.FailKind(KindDeleteMessage)

	assert.NoError(eng.ProcessEvent(ctx, msgEnv(bob, "m1", "hello")))
	assert.Equal([]string{"still here"}, tr.Texts())

	n, err := eng.Counters.GetCount(ctx, CounterWarnings, countstore.MemberKey("room1", "u2"), countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, n)
	flags, err := eng.Flags.Get(ctx, flagstore.MemberKey("room1", "u2"))
	assert.NoError(err)
	assert.Equal([]string{FlagSpam}, flags)

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "warnings")))
	assert.Equal("⚠️ You have 1/3 warnings\nFlags: spam", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, msgEnv(bob, "m2", "hello")))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "warnings")))
	assert.Equal("⚠️ You have 2/3 warnings\nBe careful! One more warning reaches the limit.\nFlags: spam", lastText(tr))

	// third warning reaches the limit
	assert.NoError(eng.ProcessEvent(ctx, msgEnv(bob, "m3", "hello")))
	flags, err = eng.Flags.Get(ctx, flagstore.MemberKey("room1", "u2"))
	assert.NoError(err)
	assert.Contains(flags, FlagWarnLimit)

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "modstats")))
	assert.Equal("📈 Moderation stats (today)\nDeletions: 3\nMutes: 0\nMembers warned: 1", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "clearflags", "u2")))
	assert.Equal("❌ Only admins can use /clearflags", lastText(tr))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "clearflags", "u2")))
	assert.Equal("✅ Cleared flags for u2: spam, warn-limit", lastText(tr))
	flags, err = eng.Flags.Get(ctx, flagstore.MemberKey("room1", "u2"))
	assert.NoError(err)
	assert.Empty(flags)
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "clearflags", "u2")))
	assert.Equal("No flags on u2", lastText(tr))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(TestAdmin, "clearflags")))
	assert.Equal("Usage: /clearflags <user-id>", lastText(tr))
}

func TestWarnLimitCountsWarningsFromSameEvent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()
	warn := func(c *MessageContext) error {
		c.Warn()
		return nil
	}
	eng.Rules = RuleSet{MessageRules: []MessageRuleFunc{warn, warn}}
	key := flagstore.MemberKey("room1", "u2")

	assert.NoError(eng.ProcessEvent(ctx, msgEnv(bob, "m1", "hello")))
	flags, err := eng.Flags.Get(ctx, key)
	assert.NoError(err)
	assert.Empty(flags)

	// three warnings from one message reach the limit on that message
	eng.Rules = RuleSet{MessageRules: []MessageRuleFunc{warn, warn, warn}}
	assert.NoError(eng.ProcessEvent(ctx, msgEnv(carol, "m2", "hello")))
	flags, err = eng.Flags.Get(ctx, flagstore.MemberKey("room1", "u3"))
	assert.NoError(err)
	assert.Equal([]string{FlagWarnLimit}, flags)

	n, err := eng.Counters.GetCount(ctx, CounterWarnings, countstore.MemberKey("room1", "u3"), countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(3, n)
}

func TestRefreshAdmins(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()
	roster := eng.Roster.(*StaticRoster)

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "disable", "meme")))
	assert.Equal("❌ Only admins can use /disable", lastText(tr))

	// promoted in the chat, but the cached roster still says otherwise
	roster.Rooms["room1"] = []event.User{TestAdmin, bob}
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "disable", "meme")))
	assert.Equal("❌ Only admins can use /disable", lastText(tr))
	assert.Equal(1, roster.Calls)

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "refreshadmins")))
	assert.Equal("🔄 Admin list will be reloaded", lastText(tr))
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "disable", "meme")))
	assert.Equal("❌ Feature 'meme' disabled", lastText(tr))
	assert.Equal(2, roster.Calls)
}

func TestRuleErrorsAndPanics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()
	boom := errors.New("boom")
	eng.Rules = RuleSet{MessageRules: []MessageRuleFunc{
		func(c *MessageContext) error { return boom },
		func(c *MessageContext) error {
			c.Reply("after error")
			return nil
		},
	}}
	err := eng.ProcessEvent(ctx, msgEnv(bob, "m1", "hi"))
	assert.ErrorIs(err, boom)
	assert.Equal([]string{"after error"}, tr.Texts())

	eng.Rules = RuleSet{MessageRules: []MessageRuleFunc{
		func(c *MessageContext) error { panic("rule bug") },
	}}
	assert.Error(eng.ProcessEvent(ctx, msgEnv(bob, "m2", "hi")))

	// later events still process
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "start")))
	assert.Contains(lastText(tr), "Bot is running")

	assert.Error(eng.ProcessEvent(ctx, &event.Envelope{Type: event.TypeMessage}))
}

func TestSlashMessageRoutesToCommand(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()
	called := false
	eng.Rules = RuleSet{MessageRules: []MessageRuleFunc{
		func(c *MessageContext) error {
			called = true
			return nil
		},
	}}

	assert.NoError(eng.ProcessEvent(ctx, msgEnv(bob, "m1", "/emoji@groupmod_bot")))
	assert.False(called)
	assert.Len(tr.Texts(), 1)

	// commands for other bots are ignored
	assert.NoError(eng.ProcessEvent(ctx, msgEnv(bob, "m2", "/unknowncmd")))
	assert.Len(tr.Texts(), 1)

	assert.NoError(eng.ProcessEvent(ctx, msgEnv(bob, "m3", "plain text")))
	assert.True(called)
}

func TestFunCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "poll", `"Lunch?"`, `"Pizza"`)))
	assert.Contains(lastText(tr), "Need at least a question and 2 options!")
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "poll", `"Lunch?"`, `"Pizza"`, `"Sushi`, `rolls"`)))
	polls := tr.OfKind(KindSendPoll)
	require.Len(t, polls, 1)
	assert.Equal(SendPoll{Room: "room1", Question: "Lunch?", Options: []string{"Pizza", "Sushi rolls"}}, polls[0])

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "video", "8k")))
	assert.Equal("❌ Invalid quality. Use: 1080, 360, 4k, 720", lastText(tr))

	tr.FailKind(KindSendVideo)
	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "video", "720")))
	assert.Equal("❌ Couldn't send the video right now", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "meme")))
	photos := tr.OfKind(KindSendPhoto)
	require.Len(t, photos, 1)
	assert.Equal(eng.Media.Memes[0], photos[0].(SendPhoto).URL)
}

func TestReportMentionsAdmins(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "report")))
	assert.Equal("Usage: /report <reason>", lastText(tr))

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "report", "spam", "bot")))
	texts := tr.Texts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal("🚨 Report from @bob\nReason: spam bot\n\n@alice", texts[len(texts)-2])
	assert.Equal("✅ Report sent to admins", texts[len(texts)-1])
}

func TestMessageCount(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, tr := EngineTestFixture()
	room := eng.Rooms.Get("room1")
	room.Touch("u3", "Carol")
	room.Touch("u2", "Bob")
	room.Count("u3")
	room.Count("u2")
	room.Count("u2")

	assert.NoError(eng.ProcessEvent(ctx, cmdEnv(bob, "mcount")))
	assert.Equal("📊 Your message count: 2\n\n🏆 Top chatters:\n1. Bob: 2\n2. Carol: 1", lastText(tr))
}
