// Package conformance checks a chat service end to end with one account: auth,
// guild and channel management, messaging, events, permissions, profile and
// media.
//
// Steps run in a fixed order within one goroutine. A step whose inputs come
// from a failed step is recorded as skipped.
package conformance

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wesleyorama2/chatload/internal/chat"
	"github.com/wesleyorama2/chatload/pkg/jsonschema"
)

// Media round-tripped by the upload and download steps.
const (
	mediaFilename    = "test_chamber.txt"
	mediaContentType = "text/plain"
	mediaData        = "They're waiting for you Gordon, in the test chamber."
)

var guildListSchema = jsonschema.MustCompile("list-guilds.json", `{
	"type": "object",
	"required": ["guilds"],
	"properties": {
		"guilds": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["guild_id"],
				"properties": {"guild_id": {"type": ["integer", "string"]}}
			}
		}
	}
}`)

var userSchema = jsonschema.MustCompile("get-user.json", `{
	"type": "object",
	"required": ["user"],
	"properties": {
		"user": {
			"type": "object",
			"required": ["user_id", "user_name", "user_status", "is_bot"],
			"properties": {
				"user_id": {"type": ["integer", "string"]},
				"user_name": {"type": "string"},
				"user_status": {"type": "string"},
				"is_bot": {"type": "boolean"}
			}
		}
	}
}`)

// Suite is a conformance run configuration.
type Suite struct {
	Client      chat.Client
	Identity    string
	Secret      string
	DisplayName string

	// GuildName is used when the account has no guild yet (default "conformance").
	GuildName string

	// EventTimeout bounds the wait for the event of a sent message (default 5s).
	EventTimeout time.Duration

	Logger *zap.Logger
}

type runner struct {
	ctx    context.Context
	report *Report
	logger *zap.Logger
}

// step runs fn and records the result. When ready is false the step is
// recorded as skipped without running.
func (r *runner) step(name string, ready bool, fn func() error) bool {
	if !ready {
		r.report.add(name, StatusSkipped, 0, nil)
		r.logger.Debug("step skipped", zap.String("step", name))
		return false
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if err != nil {
		r.report.add(name, StatusFailed, elapsed, err)
		r.logger.Warn("step failed", zap.String("step", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return false
	}
	r.report.add(name, StatusPassed, elapsed, nil)
	r.logger.Info("step passed", zap.String("step", name), zap.Duration("elapsed", elapsed))
	return true
}

func compare[T comparable](what string, got, want T) error {
	if got != want {
		return fmt.Errorf("%s = %v, want %v", what, got, want)
	}
	return nil
}

// Run executes every step and returns the report. It never stops early: steps
// that cannot run are recorded as skipped.
func (s *Suite) Run(ctx context.Context) *Report {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	guildName := s.GuildName
	if guildName == "" {
		guildName = "conformance"
	}
	eventTimeout := s.EventTimeout
	if eventTimeout <= 0 {
		eventTimeout = 5 * time.Second
	}

	report := &Report{Identity: s.Identity, StartedAt: time.Now()}
	r := &runner{ctx: ctx, report: report, logger: logger.With(zap.String("identity", s.Identity))}
	c := s.Client

	var session *chat.Session
	call := func(req chat.Request) (*chat.Response, error) {
		return c.Call(ctx, session, req)
	}

	authed := r.step("auth", true, func() error {
		sess, err := c.Authenticate(ctx, s.Identity, s.Secret)
		if chat.IsAuthError(err) {
			if _, err := c.Register(ctx, s.Identity, s.DisplayName, s.Secret); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			sess, err = c.Authenticate(ctx, s.Identity, s.Secret)
		}
		if err != nil {
			return err
		}
		session = sess
		return nil
	})

	r.step("check-logged-in", authed, func() error {
		_, err := call(chat.CheckLoggedIn())
		return err
	})

	var initialStatus string
	r.step("get-user", authed, func() error {
		resp, err := call(chat.GetUser(session.UserID))
		if err != nil {
			return err
		}
		if err := userSchema.Validate(resp.Body); err != nil {
			return fmt.Errorf("%s: %w", userSchema.Name(), err)
		}
		id, err := resp.Uint("$.user.user_id")
		if err != nil {
			return err
		}
		initialStatus, _ = resp.String("$.user.user_status")
		return compare("user id", id, session.UserID)
	})

	var guildID uint64
	listed := r.step("list-guilds", authed, func() error {
		resp, err := call(chat.ListGuilds())
		if err != nil {
			return err
		}
		if err := guildListSchema.Validate(resp.Body); err != nil {
			return fmt.Errorf("%s: %w", guildListSchema.Name(), err)
		}
		ids, err := resp.Uints("$.guilds[*].guild_id")
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			guildID = ids[0]
		}
		return nil
	})

	hasGuild := r.step("ensure-guild", listed, func() error {
		if guildID != 0 {
			return nil
		}
		resp, err := call(chat.CreateGuild(guildName))
		if err != nil {
			return err
		}
		guildID, err = resp.Uint("$.guild_id")
		return err
	})

	var channelID uint64
	hasChannel := r.step("ensure-channel", hasGuild, func() error {
		resp, err := call(chat.ListChannels(guildID))
		if err != nil {
			return err
		}
		ids, err := resp.Uints("$.channels[*].channel_id")
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			channelID = ids[0]
			return nil
		}
		resp, err = call(chat.CreateChannel(guildID, "general"))
		if err != nil {
			return err
		}
		channelID, err = resp.Uint("$.channel_id")
		return err
	})

	var stream chat.EventStream
	streaming := r.step("open-event-stream", hasGuild, func() error {
		var err error
		stream, err = c.Subscribe(ctx, session, []uint64{guildID})
		return err
	})
	if stream != nil {
		defer stream.Close()
	}

	r.step("get-guild-roles", hasGuild, func() error {
		_, err := call(chat.GetGuildRoles(guildID))
		return err
	})
	r.step("get-emote-packs", authed, func() error {
		_, err := call(chat.GetEmotePacks())
		return err
	})
	r.step("typing", hasChannel, func() error {
		_, err := call(chat.Typing(guildID, channelID))
		return err
	})

	text := "test at " + strconv.FormatInt(time.Now().Unix(), 10)
	var messageID uint64
	sent := r.step("send-message", hasChannel, func() error {
		resp, err := call(chat.SendMessage(guildID, channelID, text))
		if err != nil {
			return err
		}
		messageID, err = resp.Uint("$.message_id")
		return err
	})

	r.step("receive-message-event", sent && streaming, func() error {
		waitCtx, cancel := context.WithTimeout(ctx, eventTimeout)
		defer cancel()
		for {
			ev, err := stream.Next(waitCtx)
			if err != nil {
				return fmt.Errorf("waiting for message-sent: %w", err)
			}
			if ev.Type == "message-sent" && ev.GuildID == guildID {
				return nil
			}
		}
	})

	var newest string
	fetched := r.step("get-channel-messages", sent, func() error {
		resp, err := call(chat.GetChannelMessages(guildID, channelID))
		if err != nil {
			return err
		}
		newest, err = resp.String("$.messages[0].text")
		return err
	})
	r.step("compare-channel-message", fetched, func() error {
		return compare("newest message text", newest, text)
	})

	edited := text + " (edited)"
	updated := r.step("update-message-text", sent, func() error {
		_, err := call(chat.UpdateMessageText(guildID, channelID, messageID, edited))
		return err
	})
	r.step("compare-get-message", updated, func() error {
		resp, err := call(chat.GetMessage(guildID, channelID, messageID))
		if err != nil {
			return err
		}
		got, err := resp.String("$.message.text")
		if err != nil {
			return err
		}
		return compare("message text", got, edited)
	})

	countChannels := func() (int, error) {
		resp, err := call(chat.ListChannels(guildID))
		if err != nil {
			return 0, err
		}
		return resp.Count("$.channels")
	}

	var channelsBefore int
	counted := r.step("list-channels", hasGuild, func() error {
		var err error
		channelsBefore, err = countChannels()
		return err
	})

	var scratchChannel uint64
	channelCreated := r.step("create-channel", counted, func() error {
		resp, err := call(chat.CreateChannel(guildID, "scratch-"+uuid.NewString()[:8]))
		if err != nil {
			return err
		}
		scratchChannel, err = resp.Uint("$.channel_id")
		return err
	})
	r.step("compare-channel-count-after-create", channelCreated, func() error {
		n, err := countChannels()
		if err != nil {
			return err
		}
		return compare("channel count", n, channelsBefore+1)
	})
	channelDeleted := r.step("delete-channel", channelCreated, func() error {
		_, err := call(chat.DeleteChannel(guildID, scratchChannel))
		return err
	})
	r.step("compare-channel-count-after-delete", channelDeleted, func() error {
		n, err := countChannels()
		if err != nil {
			return err
		}
		return compare("channel count", n, channelsBefore)
	})

	guildNameOf := func() (string, error) {
		resp, err := call(chat.GetGuild(guildID))
		if err != nil {
			return "", err
		}
		return resp.String("$.guild.guild_name")
	}

	var originalName string
	gotGuild := r.step("get-guild", hasGuild, func() error {
		var err error
		originalName, err = guildNameOf()
		return err
	})
	renamedTo := originalName + " renamed"
	renamed := r.step("update-guild", gotGuild, func() error {
		_, err := call(chat.UpdateGuildName(guildID, renamedTo))
		return err
	})
	r.step("compare-guild-name", renamed, func() error {
		got, err := guildNameOf()
		if err != nil {
			return err
		}
		return compare("guild name", got, renamedTo)
	})
	r.step("restore-guild-name", renamed, func() error {
		_, err := call(chat.UpdateGuildName(guildID, originalName))
		return err
	})

	var scratchGuild uint64
	guildCreated := r.step("create-guild", authed, func() error {
		resp, err := call(chat.CreateGuild("scratch-" + uuid.NewString()[:8]))
		if err != nil {
			return err
		}
		scratchGuild, err = resp.Uint("$.guild_id")
		return err
	})

	// A freshly created guild has exactly one member: its owner.
	var members []uint64
	gotMembers := r.step("get-guild-members", guildCreated, func() error {
		resp, err := call(chat.GetGuildMembers(scratchGuild))
		if err != nil {
			return err
		}
		members, err = resp.Uints("$.members")
		return err
	})
	r.step("compare-member-count", gotMembers, func() error {
		return compare("member count", len(members), 1)
	})
	r.step("get-member-profile", gotMembers && len(members) > 0, func() error {
		resp, err := call(chat.GetUser(members[0]))
		if err != nil {
			return err
		}
		id, err := resp.Uint("$.user.user_id")
		if err != nil {
			return err
		}
		return compare("member user id", id, session.UserID)
	})
	r.step("delete-guild", guildCreated, func() error {
		_, err := call(chat.DeleteGuild(scratchGuild))
		return err
	})

	r.step("query-permission", hasChannel, func() error {
		resp, err := call(chat.QueryPermission(guildID, channelID, "messages.send"))
		if err != nil {
			return err
		}
		ok, err := resp.String("$.ok")
		if err != nil {
			return err
		}
		return compare("messages.send allowed", ok, "true")
	})

	userField := func(path string) (string, error) {
		resp, err := call(chat.GetUser(session.UserID))
		if err != nil {
			return "", err
		}
		return resp.String(path)
	}

	statusSet := r.step("update-status", authed, func() error {
		_, err := call(chat.UpdateStatus(chat.StatusOffline))
		return err
	})
	r.step("compare-user-status", statusSet, func() error {
		got, err := userField("$.user.user_status")
		if err != nil {
			return err
		}
		return compare("user status", got, chat.StatusOffline)
	})
	r.step("restore-status", statusSet, func() error {
		status := initialStatus
		if status == "" || status == chat.StatusOffline {
			status = chat.StatusOnline
		}
		_, err := call(chat.UpdateStatus(status))
		return err
	})

	botSet := r.step("update-is-bot", authed, func() error {
		_, err := call(chat.UpdateIsBot(true))
		return err
	})
	r.step("compare-is-bot", botSet, func() error {
		got, err := userField("$.user.is_bot")
		if err != nil {
			return err
		}
		return compare("is bot", got, "true")
	})
	r.step("restore-is-bot", botSet, func() error {
		_, err := call(chat.UpdateIsBot(false))
		return err
	})

	var mediaID string
	uploaded := r.step("upload-media", authed, func() error {
		var err error
		mediaID, err = c.UploadMedia(ctx, session, chat.Media{
			Filename:    mediaFilename,
			ContentType: mediaContentType,
			Data:        []byte(mediaData),
		})
		return err
	})
	var downloaded *chat.Media
	gotMedia := r.step("download-media", uploaded, func() error {
		var err error
		downloaded, err = c.DownloadMedia(ctx, session, mediaID)
		return err
	})
	r.step("compare-media", gotMedia, func() error {
		if !bytes.Equal(downloaded.Data, []byte(mediaData)) {
			return fmt.Errorf("media data = %q, want %q", downloaded.Data, mediaData)
		}
		return compare("media content type", downloaded.ContentType, mediaContentType)
	})

	report.Elapsed = time.Since(report.StartedAt)
	return report
}
