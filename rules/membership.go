package rules

import (
	"github.com/groupmod/groupmod/engine"
	"github.com/groupmod/groupmod/policy"
)

func chatName(c *engine.MembershipContext) string {
	if c.Room.Title != "" {
		return c.Room.Title
	}
	return c.Room.ID
}

var _ engine.MembershipRuleFunc = WelcomeRule

func WelcomeRule(c *engine.MembershipContext) error {
	if !c.Enabled(policy.FeatureWelcome) {
		return nil
	}
	tmpl := c.Policy().Welcome()
	for _, u := range c.Change.Joined {
		c.Send(policy.Render(tmpl, u.Name, u.Username, chatName(c)))
	}
	return nil
}

var _ engine.MembershipRuleFunc = GoodbyeRule

func GoodbyeRule(c *engine.MembershipContext) error {
	if !c.Enabled(policy.FeatureGoodbye) {
		return nil
	}
	tmpl := c.Policy().Goodbye()
	for _, u := range c.Change.Left {
		c.Send(policy.Render(tmpl, u.Name, u.Username, chatName(c)))
	}
	return nil
}
