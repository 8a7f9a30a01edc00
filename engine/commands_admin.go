package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/groupmod/groupmod/countstore"
	"github.com/groupmod/groupmod/domains"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/flagstore"
	"github.com/groupmod/groupmod/policy"
)

func adminCommands() []CommandSpec {
	return []CommandSpec{
		{Name: "features", Help: "Show feature status", Category: CategoryGeneral, Handler: cmdFeatures},
		{Name: "enable", Args: "<feature>", Help: "Enable a feature", Category: CategoryAdmin, Admin: true, Handler: cmdSetFeature(true)},
		{Name: "disable", Args: "<feature>", Help: "Disable a feature", Category: CategoryAdmin, Admin: true, Handler: cmdSetFeature(false)},
		{Name: "blockdomain", Args: "<domain>", Help: "Block a domain", Category: CategoryAdmin, Admin: true, Handler: cmdBlockDomain},
		{Name: "unblockdomain", Args: "<domain>", Help: "Unblock a domain", Category: CategoryAdmin, Admin: true, Handler: cmdUnblockDomain},
		{Name: "allowdomain", Args: "<domain>", Help: "Allow a domain", Category: CategoryAdmin, Admin: true, Handler: cmdAllowDomain},
		{Name: "disallowdomain", Args: "<domain>", Help: "Remove a domain from the allowed list", Category: CategoryAdmin, Admin: true, Handler: cmdDisallowDomain},
		{Name: "setlinkmode", Args: "<strict|whitelist|blacklist>", Help: "Set the link policy mode", Category: CategoryAdmin, Admin: true, Handler: cmdSetLinkMode},
		{Name: "setlinkoption", Args: "<option> <on|off>", Help: "Toggle an advanced link option", Category: CategoryAdmin, Admin: true, Handler: cmdSetLinkOption},
		{Name: "domainlist", Help: "Show the link policy", Category: CategoryAdmin, Admin: true, Handler: cmdDomainList},
		{Name: "banword", Args: "<word>", Help: "Add a banned word", Category: CategoryAdmin, Admin: true, Handler: cmdBanWord},
		{Name: "unbanword", Args: "<word>", Help: "Remove a banned word", Category: CategoryAdmin, Admin: true, Handler: cmdUnbanWord},
		{Name: "setwelcome", Args: "<template>", Help: "Set the welcome message", Category: CategoryAdmin, Admin: true, Handler: cmdSetWelcome},
		{Name: "setgoodbye", Args: "<template>", Help: "Set the goodbye message", Category: CategoryAdmin, Admin: true, Handler: cmdSetGoodbye},
		{Name: "addresponse", Args: `"<pattern>" "<reply>" ...`, Help: "Add an auto-response", Category: CategoryAdmin, Admin: true, Handler: cmdAddResponse},
		{Name: "delresponse", Args: `"<pattern>"`, Help: "Remove an auto-response", Category: CategoryAdmin, Admin: true, Handler: cmdDelResponse},
		{Name: "responses", Help: "List auto-responses", Category: CategoryAdmin, Admin: true, Handler: cmdResponses},
		{Name: "modstats", Help: "Moderation statistics for today", Category: CategoryAdmin, Admin: true, Handler: cmdModStats},
		{Name: "clearflags", Args: "<user-id>", Help: "Clear a member's moderation flags", Category: CategoryAdmin, Admin: true, Handler: cmdClearFlags},
		{Name: "refreshadmins", Help: "Reload the admin list from the chat", Category: CategoryModeration, Handler: cmdRefreshAdmins},
	}
}

func featureListing() string {
	return "Available features:\n" + strings.Join(policy.Features, "\n")
}

func cmdFeatures(c *CommandContext) error {
	var b strings.Builder
	b.WriteString("🛠️ Feature Status:\n")
	for _, f := range c.Policy().FeatureStates() {
		mark := "❌"
		if f.Enabled {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, f.Name)
	}
	b.WriteString("\nAdmins can use /enable or /disable to change")
	c.Reply(b.String())
	return nil
}

func cmdSetFeature(on bool) CommandFunc {
	verb := "disable"
	if on {
		verb = "enable"
	}
	return func(c *CommandContext) error {
		name := strings.ToLower(c.Arg(0))
		if name == "" {
			c.Reply(fmt.Sprintf("Usage: /%s <feature>\n%s", verb, featureListing()))
			return nil
		}
		if err := c.Policy().SetFeature(name, on); err != nil {
			if errors.Is(err, policy.ErrUnknownFeature) {
				c.Reply(fmt.Sprintf("❌ Unknown feature '%s'. %s", name, featureListing()))
				return nil
			}
			return err
		}
		c.Logger.Info("feature toggled", "feature", name, "enabled", on)
		if on {
			c.Reply(fmt.Sprintf("✅ Feature '%s' enabled", name))
		} else {
			c.Reply(fmt.Sprintf("❌ Feature '%s' disabled", name))
		}
		return nil
	}
}

// Cleans the domain argument, replying with usage if there is none.
func (c *CommandContext) domainArg() (string, bool) {
	d := domains.Clean(c.Arg(0))
	if d == "" {
		c.Reply(fmt.Sprintf("Usage: /%s <domain>", c.Command.Name))
		return "", false
	}
	return d, true
}

func cmdBlockDomain(c *CommandContext) error {
	d, ok := c.domainArg()
	if !ok {
		return nil
	}
	if c.Policy().BlockDomain(d) {
		c.Reply(fmt.Sprintf("✅ Added %s to blocked list", d))
	} else {
		c.Reply(fmt.Sprintf("ℹ️ %s is already blocked", d))
	}
	return nil
}

func cmdUnblockDomain(c *CommandContext) error {
	d, ok := c.domainArg()
	if !ok {
		return nil
	}
	if c.Policy().UnblockDomain(d) {
		c.Reply(fmt.Sprintf("✅ Removed %s from blocked list", d))
	} else {
		c.Reply(fmt.Sprintf("ℹ️ %s wasn't blocked", d))
	}
	return nil
}

func cmdAllowDomain(c *CommandContext) error {
	d, ok := c.domainArg()
	if !ok {
		return nil
	}
	if c.Policy().AllowDomain(d) {
		c.Reply(fmt.Sprintf("✅ Added %s to allowed list", d))
	} else {
		c.Reply(fmt.Sprintf("ℹ️ %s is already allowed", d))
	}
	return nil
}

func cmdDisallowDomain(c *CommandContext) error {
	d, ok := c.domainArg()
	if !ok {
		return nil
	}
	if c.Policy().DisallowDomain(d) {
		c.Reply(fmt.Sprintf("✅ Removed %s from allowed list", d))
	} else {
		c.Reply(fmt.Sprintf("ℹ️ %s wasn't allowed", d))
	}
	return nil
}

func modeNames() string {
	names := make([]string, 0, len(domains.Modes))
	for _, m := range domains.Modes {
		names = append(names, "'"+string(m)+"'")
	}
	return strings.Join(names, ", ")
}

func cmdSetLinkMode(c *CommandContext) error {
	if c.Arg(0) == "" {
		c.Reply(fmt.Sprintf("Current mode: %s\nUsage: /setlinkmode <strict|whitelist|blacklist>", c.Policy().LinkPolicy().Mode))
		return nil
	}
	m, err := c.Policy().SetMode(c.Arg(0))
	if err != nil {
		if errors.Is(err, policy.ErrInvalidMode) {
			c.Reply(fmt.Sprintf("❌ Invalid mode. Use %s", modeNames()))
			return nil
		}
		return err
	}
	c.Logger.Info("link mode changed", "mode", m)
	c.Reply(fmt.Sprintf("✅ Link mode set to: %s", m))
	return nil
}

func parseSwitch(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "on", "true", "yes", "1":
		return true, true
	case "off", "false", "no", "0":
		return false, true
	}
	return false, false
}

func cmdSetLinkOption(c *CommandContext) error {
	on, ok := parseSwitch(c.Arg(1))
	if c.Arg(0) == "" || !ok {
		c.Reply(fmt.Sprintf("Usage: /setlinkoption <option> <on|off>\nOptions: %s", strings.Join(policy.LinkOptions, ", ")))
		return nil
	}
	name := strings.ToLower(c.Arg(0))
	if err := c.Policy().SetLinkOption(name, on); err != nil {
		if errors.Is(err, policy.ErrUnknownOption) {
			c.Reply(fmt.Sprintf("❌ Unknown option '%s'. Options: %s", name, strings.Join(policy.LinkOptions, ", ")))
			return nil
		}
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	c.Reply(fmt.Sprintf("✅ %s is now %s", name, state))
	return nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func onOff(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}

func cmdDomainList(c *CommandContext) error {
	p := c.Policy().LinkPolicy()
	var b strings.Builder
	fmt.Fprintf(&b, "🔗 Link Policy\nMode: %s\n\n", p.Mode)
	fmt.Fprintf(&b, "✅ Allowed: %s\n", listOrNone(p.Allowed))
	fmt.Fprintf(&b, "🚫 Blocked: %s\n\n", listOrNone(p.Blocked))
	b.WriteString("Advanced:\n")
	fmt.Fprintf(&b, "%s %s\n", onOff(p.BlockShorteners), policy.OptionBlockShorteners)
	fmt.Fprintf(&b, "%s %s\n", onOff(p.BlockObfuscated), policy.OptionBlockObfuscated)
	fmt.Fprintf(&b, "%s %s", onOff(p.AllowSubdomains), policy.OptionAllowSubdomains)
	c.Reply(b.String())
	return nil
}

func cmdBanWord(c *CommandContext) error {
	w := strings.ToLower(c.ArgText())
	if w == "" {
		c.Reply("Usage: /banword <word>")
		return nil
	}
	if c.Policy().BanWord(w) {
		c.Reply(fmt.Sprintf("✅ Added '%s' to banned words", w))
	} else {
		c.Reply(fmt.Sprintf("ℹ️ '%s' is already banned", w))
	}
	return nil
}

func cmdUnbanWord(c *CommandContext) error {
	w := strings.ToLower(c.ArgText())
	if w == "" {
		c.Reply("Usage: /unbanword <word>")
		return nil
	}
	if c.Policy().UnbanWord(w) {
		c.Reply(fmt.Sprintf("✅ Removed '%s' from banned words", w))
	} else {
		c.Reply(fmt.Sprintf("ℹ️ '%s' wasn't banned", w))
	}
	return nil
}

func cmdSetWelcome(c *CommandContext) error {
	t := c.ArgText()
	if t == "" {
		c.Reply(fmt.Sprintf("Current welcome message:\n%s\n\nUsage: /setwelcome <template>\nPlaceholders: {name}, {username}, {chat}", c.Policy().Welcome()))
		return nil
	}
	c.Policy().SetWelcome(t)
	c.Reply("✅ Welcome message updated!")
	return nil
}

func cmdSetGoodbye(c *CommandContext) error {
	t := c.ArgText()
	if t == "" {
		c.Reply(fmt.Sprintf("Current goodbye message:\n%s\n\nUsage: /setgoodbye <template>\nPlaceholders: {name}, {username}, {chat}", c.Policy().Goodbye()))
		return nil
	}
	c.Policy().SetGoodbye(t)
	c.Reply("✅ Goodbye message updated!")
	return nil
}

func cmdAddResponse(c *CommandContext) error {
	parts := event.QuotedArgs(c.Command.Args)
	if len(parts) < 2 {
		c.Reply(`Usage: /addresponse "pattern" "reply1" ["reply2" ...]`)
		return nil
	}
	added, err := c.Policy().AddResponse(parts[0], parts[1:])
	if err != nil {
		if errors.Is(err, policy.ErrBadPattern) || errors.Is(err, policy.ErrNoReplies) {
			c.Reply(fmt.Sprintf("❌ %s", err))
			return nil
		}
		return err
	}
	if added {
		c.Reply(fmt.Sprintf("✅ Response added for pattern: %s", parts[0]))
	} else {
		c.Reply(fmt.Sprintf("✅ Responses updated for pattern: %s", parts[0]))
	}
	return nil
}

func cmdDelResponse(c *CommandContext) error {
	pattern := c.ArgText()
	if q := event.QuotedArgs(c.Command.Args); len(q) > 0 {
		pattern = q[0]
	}
	if pattern == "" {
		c.Reply(`Usage: /delresponse "pattern"`)
		return nil
	}
	if c.Policy().RemoveResponse(pattern) {
		c.Reply(fmt.Sprintf("✅ Removed response for pattern: %s", pattern))
	} else {
		c.Reply(fmt.Sprintf("ℹ️ No response for pattern: %s", pattern))
	}
	return nil
}

func cmdResponses(c *CommandContext) error {
	rs := c.Policy().Responses()
	if len(rs) == 0 {
		c.Reply("No auto-responses configured.")
		return nil
	}
	var b strings.Builder
	b.WriteString("💬 Auto-responses:")
	for i, r := range rs {
		fmt.Fprintf(&b, "\n%d. %s → %s", i+1, r.Pattern, strings.Join(r.Replies, " | "))
	}
	c.Reply(b.String())
	return nil
}

func cmdModStats(c *CommandContext) error {
	room := c.Room.ID
	deletions := c.GetCount(CounterDeletions, room, countstore.PeriodDay)
	mutes := c.GetCount(CounterMutes, room, countstore.PeriodDay)
	warned := c.GetCountDistinct(CounterWarned, room, countstore.PeriodDay)
	if c.Err != nil {
		return c.Err
	}
	c.Reply(fmt.Sprintf("📈 Moderation stats (today)\nDeletions: %d\nMutes: %d\nMembers warned: %d", deletions, mutes, warned))
	return nil
}

func cmdClearFlags(c *CommandContext) error {
	id := c.Arg(0)
	if id == "" {
		c.Reply("Usage: /clearflags <user-id>")
		return nil
	}
	key := flagstore.MemberKey(c.Room.ID, id)
	flags := c.GetFlags(key)
	if c.Err != nil {
		return c.Err
	}
	if len(flags) == 0 {
		c.Reply(fmt.Sprintf("No flags on %s", id))
		return nil
	}
	if err := c.engine.Flags.Remove(c.Ctx, key, flags); err != nil {
		return fmt.Errorf("clearing flags: %w", err)
	}
	c.Logger.Info("flags cleared", "member", id, "flags", flags)
	c.Reply(fmt.Sprintf("✅ Cleared flags for %s: %s", id, strings.Join(flags, ", ")))
	return nil
}

// Anyone may ask; the next admin check goes back to the chat's roster.
func cmdRefreshAdmins(c *CommandContext) error {
	if err := c.engine.PurgeAdmins(c.Ctx, c.Room.ID); err != nil {
		return fmt.Errorf("purging admin cache: %w", err)
	}
	c.Reply("🔄 Admin list will be reloaded")
	return nil
}
