package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
	"github.com/dskvich/banana-draw-bot/pkg/store"
)

const (
	AdminCommand = "/banana"

	historyLimit      = 10
	confirmTTL        = 60 * time.Second
	internalErrorText = "❌ Internal error, please try again later"
	notAdminText      = "❌ Only bot admins can use this command"
)

const adminHelp = `**Banana admin commands**
- ` + "`/banana wl add [origin]`" + ` whitelist a chat, the current one by default
- ` + "`/banana wl del [origin]`" + ` remove a chat from the whitelist
- ` + "`/banana wl list`" + ` show the whitelist
- ` + "`/banana preset add <line>`" + ` add or overwrite a preset
- ` + "`/banana preset update <line>`" + ` change an existing preset
- ` + "`/banana preset list`" + ` show all presets
- ` + "`/banana preset del <trigger>`" + ` delete a preset
- ` + "`/banana history`" + ` show recent draws in this chat`

type AdminStore interface {
	Lookup(trigger string) (store.Preset, bool)
	Presets() []store.Preset
	UpsertPreset(line string) ([]string, error)
	UpdatePreset(line string) error
	DeleteTrigger(trigger string) error
	DeletePreset(trigger string) error
	WhitelistAdd(origin string) (bool, error)
	WhitelistRemove(origin string) (bool, error)
	WhitelistList() []string
	Settings() store.Settings
}

type Authenticator interface {
	IsAuthorized(userID string) bool
}

type PendingRepository interface {
	Save(chatID int64, userID string, p domain.PendingDeletion)
	Take(chatID int64, userID string) (domain.PendingDeletion, bool)
}

type HistoryReader interface {
	Recent(ctx context.Context, origin string, limit int) ([]domain.Generation, error)
}

type adminService struct {
	store         AdminStore
	authenticator Authenticator
	pending       PendingRepository
	history       HistoryReader
	responseCh    chan<- domain.Response
	now           func() time.Time
}

// NewAdminService builds the admin command handler. history may be nil.
func NewAdminService(
	store AdminStore,
	authenticator Authenticator,
	pending PendingRepository,
	history HistoryReader,
	responseCh chan<- domain.Response,
) *adminService {
	return &adminService{
		store:         store,
		authenticator: authenticator,
		pending:       pending,
		history:       history,
		responseCh:    responseCh,
		now:           time.Now,
	}
}

// HandleEvent answers admin commands and pending delete confirmations. It
// reports whether e was consumed.
func (s *adminService) HandleEvent(ctx context.Context, e domain.Event) bool {
	if pending, ok := s.pending.Take(e.ChatID, e.SenderID); ok && s.now().Before(pending.ExpiresAt) {
		s.confirmDeletion(ctx, e, pending)
		return true
	}

	fields := strings.Fields(e.Text)
	if len(fields) == 0 || !isAdminCommand(fields[0]) {
		return false
	}

	if !s.authenticator.IsAuthorized(e.SenderID) {
		slog.WarnContext(ctx, "Admin command from unauthorized user", "user_id", e.SenderID)
		s.responseCh <- e.Reply(notAdminText)
		return true
	}

	args := append(fields[1:], "", "")
	group, action := args[0], args[1]
	rest := strings.TrimSpace(strings.Join(args[2:], " "))

	var text string
	switch group {
	case "wl":
		text = s.whitelist(e, action, rest)
	case "preset":
		text = s.preset(e, action, rest)
	case "history":
		text = s.recent(ctx, e)
	default:
		text = adminHelp
	}

	s.responseCh <- e.Reply(text)
	return true
}

// isAdminCommand accepts "/banana" and the "/banana@botname" form.
func isAdminCommand(token string) bool {
	name, _, _ := strings.Cut(token, "@")
	return name == AdminCommand
}

func (s *adminService) whitelist(e domain.Event, action, origin string) string {
	origin = lo.Ternary(origin == "", e.Origin, origin)

	switch action {
	case "add":
		added, err := s.store.WhitelistAdd(origin)
		if err != nil {
			return failure(err)
		}
		if !added {
			return fmt.Sprintf("`%s` is already whitelisted", origin)
		}
		return fmt.Sprintf("✅ Added `%s` to the whitelist", origin)
	case "del":
		removed, err := s.store.WhitelistRemove(origin)
		if err != nil {
			return failure(err)
		}
		if !removed {
			return fmt.Sprintf("`%s` is not whitelisted", origin)
		}
		return fmt.Sprintf("✅ Removed `%s` from the whitelist", origin)
	case "list":
		list := s.store.WhitelistList()
		state := lo.Ternary(s.store.Settings().WhitelistEnabled, "enabled", "disabled")
		if len(list) == 0 {
			return fmt.Sprintf("Whitelist (%s) is empty", state)
		}
		return fmt.Sprintf("**Whitelist** (%s)\n%s", state, bullets(list))
	default:
		return adminHelp
	}
}

func (s *adminService) preset(e domain.Event, action, arg string) string {
	switch action {
	case "add":
		if arg == "" {
			return adminHelp
		}
		overwritten, err := s.store.UpsertPreset(arg)
		if err != nil {
			return failure(err)
		}
		text := fmt.Sprintf("✅ Preset saved: `%s`", arg)
		if len(overwritten) > 0 {
			text += fmt.Sprintf("\nTriggers taken over: %s", strings.Join(overwritten, ", "))
		}
		return text
	case "update":
		if arg == "" {
			return adminHelp
		}
		if err := s.store.UpdatePreset(arg); err != nil {
			return failure(err)
		}
		return fmt.Sprintf("✅ Preset updated: `%s`", arg)
	case "list":
		presets := s.store.Presets()
		if len(presets) == 0 {
			return "No presets configured"
		}
		lines := lo.Map(presets, func(p store.Preset, _ int) string {
			return "`" + p.String() + "`"
		})
		return "**Presets**\n" + bullets(lines)
	case "del":
		return s.deletePreset(e, arg)
	default:
		return adminHelp
	}
}

func (s *adminService) recent(ctx context.Context, e domain.Event) string {
	if s.history == nil {
		return "History is disabled, set DATABASE_URL to enable it"
	}

	generations, err := s.history.Recent(ctx, e.Origin, historyLimit)
	if err != nil {
		slog.ErrorContext(ctx, "Reading generation history", logger.Err(err))
		return failure(err)
	}
	if len(generations) == 0 {
		return "No draws yet"
	}

	lines := lo.Map(generations, func(g domain.Generation, _ int) string {
		status := fmt.Sprintf("%d image(s) via %s", g.ImageCount, g.Provider)
		if g.Error != "" {
			status = "failed: " + g.Error
		}
		return fmt.Sprintf("%s `%s` %s, %s", g.CreatedAt.Format(time.DateTime), g.Trigger, g.Prompt, status)
	})
	return "**Recent draws**\n" + bullets(lines)
}

func (s *adminService) deletePreset(e domain.Event, trigger string) string {
	if trigger == "" {
		return adminHelp
	}

	preset, ok := s.store.Lookup(trigger)
	if !ok {
		return failure(store.ErrPresetNotFound)
	}

	if len(preset.Triggers) == 1 {
		if err := s.store.DeletePreset(trigger); err != nil {
			return failure(err)
		}
		return fmt.Sprintf("✅ Deleted preset `%s`", trigger)
	}

	s.pending.Save(e.ChatID, e.SenderID, domain.PendingDeletion{
		Trigger:   trigger,
		Aliases:   preset.Triggers,
		ExpiresAt: s.now().Add(confirmTTL),
	})
	return fmt.Sprintf(
		"Preset `%s` also answers to %s.\nReply `all` to delete the whole preset, `one` to delete only `%s`, anything else cancels.",
		trigger, strings.Join(lo.Without(preset.Triggers, trigger), ", "), trigger,
	)
}

func (s *adminService) confirmDeletion(ctx context.Context, e domain.Event, pending domain.PendingDeletion) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Panic while confirming preset deletion", "panic", r)
			s.responseCh <- e.Reply(internalErrorText)
		}
	}()

	var (
		err  error
		text string
	)
	switch strings.ToLower(strings.TrimSpace(e.Text)) {
	case "all":
		err = s.store.DeletePreset(pending.Trigger)
		text = fmt.Sprintf("✅ Deleted preset %s", strings.Join(pending.Aliases, ", "))
	case "one":
		err = s.store.DeleteTrigger(pending.Trigger)
		text = fmt.Sprintf("✅ Deleted trigger `%s`", pending.Trigger)
	default:
		text = "Deletion cancelled"
	}

	if err != nil {
		slog.ErrorContext(ctx, "Deleting preset", "trigger", pending.Trigger, logger.Err(err))
		text = failure(err)
	}
	s.responseCh <- e.Reply(text)
}

func failure(err error) string {
	if errors.Is(err, store.ErrPresetNotFound) {
		return "❌ Preset not found"
	}
	return "❌ " + err.Error()
}

func bullets(items []string) string {
	return "- " + strings.Join(items, "\n- ")
}
