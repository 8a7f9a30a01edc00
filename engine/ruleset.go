package engine

type MessageRuleFunc = func(c *MessageContext) error
type MembershipRuleFunc = func(c *MembershipContext) error

// Ordered lists of rules. Every rule runs, in order, for every event of its type.
type RuleSet struct {
	MessageRules    []MessageRuleFunc
	MembershipRules []MembershipRuleFunc
}

// Executes all message rules. A failing rule does not stop later rules; the first error is returned.
func (r *RuleSet) CallMessageRules(c *MessageContext) error {
	var first error
	for _, f := range r.MessageRules {
		if err := f(c); err != nil {
			c.Logger.Error("message rule failed", "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (r *RuleSet) CallMembershipRules(c *MembershipContext) error {
	var first error
	for _, f := range r.MembershipRules {
		if err := f(c); err != nil {
			c.Logger.Error("membership rule failed", "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
