package engine

import (
	"fmt"
	"strings"
)

type CommandFunc = func(c *CommandContext) error

const (
	CategoryGeneral    = "General"
	CategoryModeration = "Moderation"
	CategoryRanking    = "Ranking"
	CategoryGames      = "Games"
	CategoryFun        = "Fun"
	CategoryAdmin      = "Admin"
)

var userCategories = []string{CategoryGeneral, CategoryModeration, CategoryRanking, CategoryGames, CategoryFun}

type CommandSpec struct {
	Name     string
	Args     string
	Help     string
	Category string
	// Only room admins may run the command; everyone else gets a rejection.
	Admin bool
	// Feature that must be enabled, and the reply when it isn't.
	Feature  string
	Disabled string
	Handler  CommandFunc
}

// Commands by name, keeping registration order for help output.
type CommandSet struct {
	specs  []CommandSpec
	byName map[string]int
}

func NewCommandSet(specs ...CommandSpec) *CommandSet {
	s := &CommandSet{byName: make(map[string]int, len(specs))}
	for _, spec := range specs {
		s.Register(spec)
	}
	return s
}

// Adds a command, replacing any existing command of the same name.
func (s *CommandSet) Register(spec CommandSpec) {
	spec.Name = strings.ToLower(spec.Name)
	if i, ok := s.byName[spec.Name]; ok {
		s.specs[i] = spec
		return
	}
	s.byName[spec.Name] = len(s.specs)
	s.specs = append(s.specs, spec)
}

func (s *CommandSet) Lookup(name string) (CommandSpec, bool) {
	i, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return CommandSpec{}, false
	}
	return s.specs[i], true
}

func (s *CommandSet) Specs() []CommandSpec {
	return append([]CommandSpec(nil), s.specs...)
}

// Routes a command to its handler. Unknown commands are ignored, since they are often meant for another bot.
func (s *CommandSet) Call(c *CommandContext) error {
	spec, ok := s.Lookup(c.Command.Name)
	if !ok {
		c.Logger.Debug("ignoring unknown command")
		return nil
	}
	commandCount.WithLabelValues(spec.Name).Inc()
	if spec.Admin && !c.IsAdmin() {
		c.Reply(fmt.Sprintf("❌ Only admins can use /%s", spec.Name))
		return nil
	}
	if spec.Feature != "" && !c.Enabled(spec.Feature) {
		if spec.Disabled != "" {
			c.Reply(spec.Disabled)
		}
		return nil
	}
	return spec.Handler(c)
}

// Arguments joined back into one string.
func (c *CommandContext) ArgText() string {
	return strings.TrimSpace(strings.Join(c.Command.Args, " "))
}

func (c *CommandContext) Arg(i int) string {
	if i >= len(c.Command.Args) {
		return ""
	}
	return c.Command.Args[i]
}

func DefaultCommands() *CommandSet {
	s := NewCommandSet()
	for _, spec := range adminCommands() {
		s.Register(spec)
	}
	for _, spec := range userCommands() {
		s.Register(spec)
	}
	return s
}

func helpLine(spec CommandSpec) string {
	if spec.Args != "" {
		return fmt.Sprintf("/%s %s - %s", spec.Name, spec.Args, spec.Help)
	}
	return fmt.Sprintf("/%s - %s", spec.Name, spec.Help)
}

func cmdCommands(c *CommandContext) error {
	specs := c.engine.Commands.Specs()
	cats := userCategories
	if c.IsAdmin() {
		cats = append(append([]string(nil), cats...), CategoryAdmin)
	}
	var b strings.Builder
	b.WriteString("📋 Available Commands")
	for _, cat := range cats {
		var lines []string
		for _, spec := range specs {
			if spec.Category == cat {
				lines = append(lines, helpLine(spec))
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s:\n%s", cat, strings.Join(lines, "\n"))
	}
	c.Reply(b.String())
	return nil
}

func cmdStart(c *CommandContext) error {
	c.Reply("🤖 Bot is running!\nUse /commands to see available commands\nUse /features to see feature status\nAdmins can use /enable and /disable to control features")
	return nil
}
