package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wesleyorama2/chatload/internal/chat"
)

// Provisioning steps, as reported in ProvisionError.Step.
const (
	StepAuthenticate  = "authenticate"
	StepRegister      = "register"
	StepListGuilds    = "list-guilds"
	StepCreateGuild   = "create-guild"
	StepListChannels  = "list-channels"
	StepCreateChannel = "create-channel"
	StepJoinGuild     = "join-guild"
	StepCreateInvite  = "create-invite"
)

// ErrNoChannel is returned when a guild has no channel and the provisioner is
// not allowed to create one.
var ErrNoChannel = errors.New("guild has no channel")

// SessionTarget is an authenticated session together with the guild and channel
// its messages go to.
type SessionTarget struct {
	Session   *chat.Session
	GuildID   uint64
	ChannelID uint64
}

// ProvisionError reports which step failed while preparing an identity.
type ProvisionError struct {
	Identity string
	Step     string
	Err      error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s: %s: %v", e.Identity, e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// Provisioner turns identities into ready SessionTargets.
type Provisioner struct {
	Client chat.Client

	// Secret is the password used for every identity.
	Secret string

	// DisplayName is used on registration. Empty means the local part of the identity.
	DisplayName string

	// GuildName is used when an identity has no guild yet.
	GuildName string

	// ChannelName is used when a guild has no channel and CreateChannel is set.
	ChannelName   string
	CreateChannel bool

	Logger *zap.Logger
}

func (p *Provisioner) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Provision authenticates identity, registering it first if needed, and returns
// its first guild and channel, creating either when absent.
func (p *Provisioner) Provision(ctx context.Context, identity string) (*SessionTarget, error) {
	session, err := p.login(ctx, identity)
	if err != nil {
		return nil, err
	}

	fail := func(step string, err error) (*SessionTarget, error) {
		return nil, &ProvisionError{Identity: identity, Step: step, Err: err}
	}

	resp, err := p.Client.Call(ctx, session, chat.ListGuilds())
	if err != nil {
		return fail(StepListGuilds, err)
	}
	guilds, err := resp.Uints("$.guilds[*].guild_id")
	if err != nil {
		return fail(StepListGuilds, err)
	}

	var guildID uint64
	if len(guilds) > 0 {
		guildID = guilds[0]
	} else {
		resp, err := p.Client.Call(ctx, session, chat.CreateGuild(p.GuildName))
		if err != nil {
			return fail(StepCreateGuild, err)
		}
		if guildID, err = resp.Uint("$.guild_id"); err != nil {
			return fail(StepCreateGuild, err)
		}
		p.logger().Debug("created guild",
			zap.String("identity", identity),
			zap.Uint64("guild_id", guildID))
	}

	channelID, err := p.firstChannel(ctx, session, guildID)
	if err != nil {
		return nil, err
	}

	return &SessionTarget{Session: session, GuildID: guildID, ChannelID: channelID}, nil
}

// ProvisionMember authenticates identity and makes it a member of the shared
// target's guild, joining through inviteID when it is not one already.
func (p *Provisioner) ProvisionMember(ctx context.Context, identity string, shared *SessionTarget, inviteID string) (*SessionTarget, error) {
	session, err := p.login(ctx, identity)
	if err != nil {
		return nil, err
	}

	resp, err := p.Client.Call(ctx, session, chat.ListGuilds())
	if err != nil {
		return nil, &ProvisionError{Identity: identity, Step: StepListGuilds, Err: err}
	}
	guilds, err := resp.Uints("$.guilds[*].guild_id")
	if err != nil {
		return nil, &ProvisionError{Identity: identity, Step: StepListGuilds, Err: err}
	}

	member := false
	for _, id := range guilds {
		if id == shared.GuildID {
			member = true
			break
		}
	}
	if !member {
		if _, err := p.Client.Call(ctx, session, chat.JoinGuild(inviteID)); err != nil {
			return nil, &ProvisionError{Identity: identity, Step: StepJoinGuild, Err: err}
		}
	}

	return &SessionTarget{Session: session, GuildID: shared.GuildID, ChannelID: shared.ChannelID}, nil
}

// CreateInvite creates a named invite to target's guild. An invite that already
// exists counts as created.
func (p *Provisioner) CreateInvite(ctx context.Context, target *SessionTarget, inviteID string) error {
	_, err := p.Client.Call(ctx, target.Session, chat.CreateInvite(target.GuildID, inviteID, 0))
	if err != nil && !chat.IsConflict(err) {
		return &ProvisionError{Identity: target.Session.Identity, Step: StepCreateInvite, Err: err}
	}
	return nil
}

func (p *Provisioner) login(ctx context.Context, identity string) (*chat.Session, error) {
	session, err := p.Client.Authenticate(ctx, identity, p.Secret)
	if err == nil {
		return session, nil
	}
	if !chat.IsAuthError(err) {
		return nil, &ProvisionError{Identity: identity, Step: StepAuthenticate, Err: err}
	}

	if _, err := p.Client.Register(ctx, identity, p.displayName(identity), p.Secret); err != nil {
		return nil, &ProvisionError{Identity: identity, Step: StepRegister, Err: err}
	}
	p.logger().Debug("registered", zap.String("identity", identity))

	session, err = p.Client.Authenticate(ctx, identity, p.Secret)
	if err != nil {
		return nil, &ProvisionError{Identity: identity, Step: StepAuthenticate, Err: err}
	}
	return session, nil
}

func (p *Provisioner) firstChannel(ctx context.Context, session *chat.Session, guildID uint64) (uint64, error) {
	fail := func(step string, err error) (uint64, error) {
		return 0, &ProvisionError{Identity: session.Identity, Step: step, Err: err}
	}

	resp, err := p.Client.Call(ctx, session, chat.ListChannels(guildID))
	if err != nil {
		return fail(StepListChannels, err)
	}
	channels, err := resp.Uints("$.channels[*].channel_id")
	if err != nil {
		return fail(StepListChannels, err)
	}
	if len(channels) > 0 {
		return channels[0], nil
	}

	if !p.CreateChannel {
		return fail(StepListChannels, fmt.Errorf("guild %d: %w", guildID, ErrNoChannel))
	}

	resp, err = p.Client.Call(ctx, session, chat.CreateChannel(guildID, p.ChannelName))
	if err != nil {
		return fail(StepCreateChannel, err)
	}
	channelID, err := resp.Uint("$.channel_id")
	if err != nil {
		return fail(StepCreateChannel, err)
	}
	p.logger().Debug("created channel",
		zap.String("identity", session.Identity),
		zap.Uint64("guild_id", guildID),
		zap.Uint64("channel_id", channelID))
	return channelID, nil
}

func (p *Provisioner) displayName(identity string) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if at := strings.IndexByte(identity, '@'); at > 0 {
		return identity[:at]
	}
	return identity
}
