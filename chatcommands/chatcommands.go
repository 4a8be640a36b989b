// Package chatcommands recognizes and executes owner commands arriving
// over IM. Authorization is per account: only the configured owner
// identity may run commands, and denial is a silent policy outcome.
package chatcommands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaraLowell/RadeWeb-sub002/collab"
)

// DefaultPrefix marks command traffic.
const DefaultPrefix = "!"

// Handler executes one command. args is the text after the command word.
type Handler func(ctx context.Context, accountID, args string) (string, error)

// Commander implements collab.Commander.
type Commander struct {
	prefix    string
	directory collab.AccountDirectory
	logger    *slog.Logger
	started   time.Time
	commands  map[string]Handler
}

// New creates a commander with the built-in command set.
func New(prefix string, directory collab.AccountDirectory, logger *slog.Logger) *Commander {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Commander{
		prefix:    prefix,
		directory: directory,
		logger:    logger.With("component", "chatcommands"),
		started:   time.Now(),
		commands:  make(map[string]Handler),
	}

	c.commands["help"] = c.cmdHelp
	c.commands["status"] = c.cmdStatus
	c.commands["echo"] = c.cmdEcho
	return c
}

// RegisterCommand adds or replaces a command handler.
func (c *Commander) RegisterCommand(name string, handler Handler) {
	c.commands[strings.ToLower(name)] = handler
}

// IsCommand implements collab.Commander.
func (c *Commander) IsCommand(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, c.prefix) && len(trimmed) > len(c.prefix)
}

// Execute implements collab.Commander. Unauthorized senders and unknown
// commands yield ok=false with no error.
func (c *Commander) Execute(ctx context.Context, accountID string, senderID uuid.UUID, senderName, text string) (bool, string, error) {
	if !c.IsCommand(text) {
		return false, "", nil
	}

	account, err := c.directory.Account(ctx, accountID)
	if err != nil {
		return false, "", err
	}
	if account == nil || account.OwnerID == uuid.Nil || senderID != account.OwnerID {
		c.logger.Debug("command denied",
			"account", accountID, "sender", senderID, "sender_name", senderName)
		return false, "", nil
	}

	name, args := c.split(text)
	handler, known := c.commands[name]
	if !known {
		return true, fmt.Sprintf("unknown command %q, try %shelp", name, c.prefix), nil
	}

	response, err := handler(ctx, accountID, args)
	if err != nil {
		return false, "", err
	}
	return true, response, nil
}

// split separates the command word from its arguments.
func (c *Commander) split(text string) (string, string) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(text), c.prefix)
	parts := strings.SplitN(trimmed, " ", 2)
	name := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return name, ""
	}
	return name, strings.TrimSpace(parts[1])
}

func (c *Commander) cmdHelp(context.Context, string, string) (string, error) {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, c.prefix+name)
	}
	sort.Strings(names)
	return "commands: " + strings.Join(names, ", "), nil
}

func (c *Commander) cmdStatus(_ context.Context, accountID, _ string) (string, error) {
	uptime := time.Since(c.started).Round(time.Second)
	return fmt.Sprintf("account %s relay online, up %s", accountID, uptime), nil
}

func (c *Commander) cmdEcho(_ context.Context, _, args string) (string, error) {
	if args == "" {
		return "nothing to echo", nil
	}
	return args, nil
}
