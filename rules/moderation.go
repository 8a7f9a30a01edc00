package rules

import (
	"fmt"

	"github.com/groupmod/groupmod/domains"
	"github.com/groupmod/groupmod/engine"
	"github.com/groupmod/groupmod/policy"
)

// Messages with a run of this many identical characters are spam.
const SpamRunLength = 11

var _ engine.MessageRuleFunc = SpamRule

func SpamRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureAntiSpam) || c.IsAdmin() {
		return nil
	}
	if LongestRun(c.Message.Text) < SpamRunLength {
		return nil
	}
	c.Warn()
	c.AddFlag(engine.FlagSpam)
	c.DeleteWithNotice(engine.FlagSpam, fmt.Sprintf("⚠️ %s, please don't spam!", c.User.Name))
	return nil
}

var _ engine.MessageRuleFunc = BannedWordRule

func BannedWordRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureKeywordFilter) || c.IsAdmin() {
		return nil
	}
	word, ok := c.Policy().MatchBanned(c.Message.Text)
	if !ok {
		return nil
	}
	c.Logger.Info("banned word", "word", word)
	c.Warn()
	c.AddFlag(engine.FlagBadWord)
	c.DeleteWithNotice(engine.FlagBadWord, fmt.Sprintf("⚠️ Message from %s contained inappropriate content", c.User.Name))
	return nil
}

var _ engine.MessageRuleFunc = FloodRule

// Mutes senders who post more than the flood limit inside the window. With auto_mute off they only get a notice.
func FloodRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureFloodControl) || c.IsAdmin() {
		return nil
	}
	d := c.Flood().Record(c.Room.ID, c.User.ID, c.Now)
	if !d.Mute {
		return nil
	}
	c.AddFlag(engine.FlagFlood)
	if !c.Enabled(policy.FeatureAutoMute) {
		c.Send(fmt.Sprintf("⚠️ %s, please slow down!", c.User.Name))
		return nil
	}
	c.Mute(d.Duration, fmt.Sprintf("🔇 %s has been muted for %s (flooding)", c.User.Name, engine.HumanDuration(d.Duration)))
	return nil
}

var _ engine.MessageRuleFunc = LinkRule

func LinkRule(c *engine.MessageContext) error {
	if !c.Enabled(policy.FeatureAntiLink) || c.IsAdmin() {
		return nil
	}
	v := domains.Evaluate(c.Policy().LinkPolicy(), c.Message.Text)
	if !v.Flagged() {
		return nil
	}
	c.Logger.Info("link removed", "domain", v.Domain, "reason", v.Reason.String())
	c.Warn()
	c.AddFlag(engine.FlagLink)
	c.DeleteWithNotice(engine.FlagLink, fmt.Sprintf("⚠️ Link removed from %s\nReason: %s", c.User.Name, v.Message()))
	return nil
}
