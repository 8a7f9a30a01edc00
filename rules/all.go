// Message and membership rules for group chats: moderation filters first, then the engagement rules that score and
// answer messages.
package rules

import (
	"github.com/groupmod/groupmod/engine"
)

// The moderation stages run in a fixed order: counting, spam, keyword, flood, links. Later stages still see a message an
// earlier stage deleted.
func DefaultRules() engine.RuleSet {
	rules := engine.RuleSet{
		MessageRules: []engine.MessageRuleFunc{
			MessageCountRule,
			SpamRule,
			BannedWordRule,
			FloodRule,
			LinkRule,
			RankingRule,
			AutoResponseRule,
			GreetingRule,
			WordGuessRule,
		},
		MembershipRules: []engine.MembershipRuleFunc{
			WelcomeRule,
			GoodbyeRule,
		},
	}
	return rules
}
