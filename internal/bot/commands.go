package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nithiyan25/reviewtrack/internal/models"
	"github.com/nithiyan25/reviewtrack/internal/review"
)

const (
	studentHelp = `Available commands:
/token - Get an API access token
/status <team> - Current review phase and deadline for a team
/marks - Your published marks
/help - Show this message`

	adminHelp = `Available commands:
/token - Get an API access token
/register <scope> <name> - Associate this chat with a scope
/deadline set <phase> <date> - Set a scope-wide phase deadline
/deadline list - List configured deadlines
/assign <team> <phase> <faculty> expires <date> - Schedule a review window
/progress - Per-team review progress
/help - Show this message

Examples:
/register PT24 "Project Track 2024"
/deadline set 2 2024-12-01
/assign team-07 2 prof.rao expires 2024-12-05
/progress`

	dateFormat = "2006-01-02"
)

type commandHandler func(*tgbotapi.Message) error

func (b *Bot) routeStudentCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"start":  b.handleStart,
		"token":  b.handleToken,
		"status": b.handleStatus,
		"marks":  b.handleMarks,
		"help":   b.handleHelp,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) routeAdminCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"register": b.handleRegister,
		"deadline": b.handleDeadline,
		"assign":   b.handleAssign,
		"progress": b.handleProgress,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendHelp(msg.Chat.ID)
		return
	}

	cmd := msg.Command()

	if handler, ok := b.routeStudentCommands(cmd); ok {
		if err := handler(msg); err != nil {
			logger.Error.Printf("Command error: %v", err)
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	if b.admins[msg.From.ID] {
		if handler, ok := b.routeAdminCommands(cmd); ok {
			if err := handler(msg); err != nil {
				logger.Error.Printf("Command error: %v", err)
				b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
			}
		}
		return
	}

	b.sendHelp(msg.Chat.ID)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	var text string
	if b.admins[msg.From.ID] {
		text = adminHelp
	} else {
		text = studentHelp
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) sendHelp(chatID int64) error {
	return b.sendMessage(chatID, "Use commands to interact with the bot. Send /help for the list.")
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	return b.handleHelp(msg)
}

// chatScope resolves which academic scope this chat is registered for.
func (b *Bot) chatScope(ctx context.Context, chatID int64) (string, error) {
	mapping, err := b.tokens.FetchScopeMappingByChatID(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("this chat is not registered for a scope yet, ask an admin to /register it")
	}
	return mapping.Scope, nil
}

func (b *Bot) handleToken(msg *tgbotapi.Message) error {
	ctx := context.Background()

	scope, err := b.chatScope(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}

	student, err := b.tokens.FetchStudentIDByTelegram(ctx, scope, msg.From.UserName)
	if err != nil {
		return err
	}

	info, isNew, err := b.tokens.FetchOrCreateStudentToken(ctx, scope, student)
	if err != nil {
		return err
	}

	prefix := "Your token"
	if isNew {
		prefix = "Your new token"
	}
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("%s: %s", prefix, info.Token))
}

func (b *Bot) handleStatus(msg *tgbotapi.Message) error {
	ctx := context.Background()

	teamID := strings.TrimSpace(msg.CommandArguments())
	if teamID == "" {
		return fmt.Errorf("usage: /status <team>")
	}

	scope, err := b.chatScope(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}

	snap, err := b.store.GetTeamSnapshot(scope, teamID)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("team %s not found in scope %s", teamID, scope)
	}

	now := time.Now()
	state := review.ComputePhaseState(snap, now.Unix())
	decision := review.EvaluateSubmission(snap, state)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Team %s: phase %d of %d\n", teamID, state.CurrentPhase, snap.Scope.NumPhases)
	if state.Deadline != nil {
		verb := "due"
		if state.Expired {
			verb = "expired"
		}
		fmt.Fprintf(&sb, "Deadline %s: %s\n", verb, time.Unix(*state.Deadline, 0).UTC().Format(dateFormat))
	}
	if decision.Allowed {
		sb.WriteString("Submission is open")
	} else {
		fmt.Fprintf(&sb, "Submission locked: %s", decision.Reason)
	}

	return b.sendMessage(msg.Chat.ID, sb.String())
}

func (b *Bot) handleMarks(msg *tgbotapi.Message) error {
	ctx := context.Background()

	scope, err := b.chatScope(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}

	student, err := b.tokens.FetchStudentIDByTelegram(ctx, scope, msg.From.UserName)
	if err != nil {
		return err
	}

	sc, err := b.store.GetScope(scope)
	if err != nil {
		return err
	}
	if sc == nil {
		return fmt.Errorf("scope %s not configured", scope)
	}

	reviews, err := b.store.StudentReviews(scope, student)
	if err != nil {
		return err
	}

	summary := review.AggregateMarks(reviews, student, sc.ResultsPublished)
	if summary.Pending {
		return b.sendMessage(msg.Chat.ID, "Results are not published yet")
	}
	if summary.CumulativePct == nil {
		return b.sendMessage(msg.Chat.ID, "No score yet")
	}

	var sb strings.Builder
	for _, ps := range summary.PerPhase {
		fmt.Fprintf(&sb, "Phase %d: %.1f/%.1f\n", ps.Phase, ps.Scored, ps.Possible)
	}
	fmt.Fprintf(&sb, "Cumulative: %.1f%%", *summary.CumulativePct)

	return b.sendMessage(msg.Chat.ID, sb.String())
}

func (b *Bot) handleRegister(msg *tgbotapi.Message) error {
	ctx := context.Background()

	args := strings.Fields(msg.CommandArguments())
	if len(args) < 1 {
		return fmt.Errorf("usage: /register <scope> <name>")
	}

	name := ""
	if len(args) > 1 {
		name = strings.Join(args[1:], " ")
	}

	mapping := &models.ChatScopeMapping{
		Scope:           args[0],
		Name:            name,
		AssociationTime: time.Now().UTC(),
		RegisteredBy:    msg.From.ID,
	}
	if err := b.tokens.AssociateChatWithScope(ctx, msg.Chat.ID, mapping); err != nil {
		return err
	}

	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Chat registered for scope %s", args[0]))
}

func (b *Bot) handleDeadline(msg *tgbotapi.Message) error {
	ctx := context.Background()

	scope, err := b.chatScope(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return fmt.Errorf("usage: /deadline set <phase> <date> | /deadline list")
	}

	switch args[0] {
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: /deadline set <phase> <date>")
		}
		phase, err := strconv.Atoi(args[1])
		if err != nil || phase < 1 {
			return fmt.Errorf("invalid phase: %s", args[1])
		}
		when, err := time.Parse(dateFormat, args[2])
		if err != nil {
			return fmt.Errorf("invalid date %q, expected %s", args[2], dateFormat)
		}

		d := models.ScopeDeadline{
			Scope:    scope,
			Phase:    phase,
			Deadline: when.Unix(),
		}
		if err := b.store.UpsertDeadline(d); err != nil {
			return err
		}
		return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Deadline for phase %d set to %s", phase, args[2]))

	case "list":
		deadlines, err := b.store.ListDeadlines(scope)
		if err != nil {
			return err
		}
		if len(deadlines) == 0 {
			return b.sendMessage(msg.Chat.ID, "No deadlines configured")
		}

		var sb strings.Builder
		for _, d := range deadlines {
			kind := "default"
			if d.TeamID != nil {
				kind = "override for " + *d.TeamID
			}
			fmt.Fprintf(&sb, "Phase %d (%s): %s\n", d.Phase, kind, time.Unix(d.Deadline, 0).UTC().Format(dateFormat))
		}
		return b.sendMessage(msg.Chat.ID, sb.String())

	default:
		return fmt.Errorf("unknown deadline subcommand: %s", args[0])
	}
}

func (b *Bot) handleAssign(msg *tgbotapi.Message) error {
	ctx := context.Background()

	scope, err := b.chatScope(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 5 || args[3] != "expires" {
		return fmt.Errorf("usage: /assign <team> <phase> <faculty> expires <date>")
	}

	team, err := b.store.GetTeam(scope, args[0])
	if err != nil {
		return err
	}
	if team == nil {
		return fmt.Errorf("team %s not found in scope %s", args[0], scope)
	}

	phase, err := strconv.Atoi(args[1])
	if err != nil || phase < 1 {
		return fmt.Errorf("invalid phase: %s", args[1])
	}
	expires, err := time.Parse(dateFormat, args[4])
	if err != nil {
		return fmt.Errorf("invalid date %q, expected %s", args[4], dateFormat)
	}

	expiresAt := expires.Unix()
	a := models.FacultyAssignment{
		TeamID:          args[0],
		Phase:           phase,
		Faculty:         args[2],
		Mode:            models.ModeOffline,
		AccessExpiresAt: &expiresAt,
	}
	if err := b.store.UpsertAssignment(a); err != nil {
		return err
	}

	return b.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"Assigned %s to review %s phase %d until %s", args[2], args[0], phase, args[4],
	))
}

func (b *Bot) handleProgress(msg *tgbotapi.Message) error {
	ctx := context.Background()

	scope, err := b.chatScope(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}

	progress, err := b.store.FetchReviewProgress(scope)
	if err != nil {
		return err
	}
	if len(progress) == 0 {
		return b.sendMessage(msg.Chat.ID, "No teams in this scope")
	}

	var sb strings.Builder
	for _, p := range progress {
		fmt.Fprintf(&sb, "%s: %d reviews, %d completed\n", p.TeamID, p.ReviewCount, p.CompletedCount)
	}
	return b.sendMessage(msg.Chat.ID, sb.String())
}
