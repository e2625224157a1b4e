package chat

// CheckLoggedIn succeeds while the session is valid.
func CheckLoggedIn() Request {
	return Request{Op: OpCheckLoggedIn}
}

// ListGuilds lists the guilds the session's user is a member of.
func ListGuilds() Request {
	return Request{Op: OpListGuilds}
}

// CreateGuild creates a guild owned by the session's user.
func CreateGuild(name string) Request {
	return Request{Op: OpCreateGuild, Params: map[string]interface{}{"guild_name": name}}
}

// GetGuild reads a guild's name and owner.
func GetGuild(guildID uint64) Request {
	return Request{Op: OpGetGuild, Params: map[string]interface{}{"guild_id": guildID}}
}

// UpdateGuildName renames a guild. Only the owner may do so.
func UpdateGuildName(guildID uint64, name string) Request {
	return Request{Op: OpUpdateGuild, Params: map[string]interface{}{
		"guild_id":   guildID,
		"guild_name": name,
	}}
}

// DeleteGuild deletes a guild and its invites.
func DeleteGuild(guildID uint64) Request {
	return Request{Op: OpDeleteGuild, Params: map[string]interface{}{"guild_id": guildID}}
}

// GetGuildMembers lists the user IDs of a guild's members.
func GetGuildMembers(guildID uint64) Request {
	return Request{Op: OpGetGuildMembers, Params: map[string]interface{}{"guild_id": guildID}}
}

// GetGuildRoles lists a guild's roles.
func GetGuildRoles(guildID uint64) Request {
	return Request{Op: OpGetGuildRoles, Params: map[string]interface{}{"guild_id": guildID}}
}

// ListChannels lists a guild's channels in creation order.
func ListChannels(guildID uint64) Request {
	return Request{Op: OpListChannels, Params: map[string]interface{}{"guild_id": guildID}}
}

// CreateChannel adds a text channel to a guild.
func CreateChannel(guildID uint64, name string) Request {
	return Request{Op: OpCreateChannel, Params: map[string]interface{}{
		"guild_id":     guildID,
		"channel_name": name,
	}}
}

// DeleteChannel removes a channel and its messages.
func DeleteChannel(guildID, channelID uint64) Request {
	return Request{Op: OpDeleteChannel, Params: map[string]interface{}{
		"guild_id":   guildID,
		"channel_id": channelID,
	}}
}

// CreateInvite creates a named invite. possibleUses of 0 means unlimited.
func CreateInvite(guildID uint64, inviteID string, possibleUses int) Request {
	return Request{Op: OpCreateInvite, Params: map[string]interface{}{
		"guild_id":      guildID,
		"invite_id":     inviteID,
		"possible_uses": possibleUses,
	}}
}

// JoinGuild joins the guild an invite belongs to.
func JoinGuild(inviteID string) Request {
	return Request{Op: OpJoinGuild, Params: map[string]interface{}{"invite_id": inviteID}}
}

// SendMessage posts a text message to a channel.
func SendMessage(guildID, channelID uint64, text string) Request {
	return Request{Op: OpSendMessage, Params: map[string]interface{}{
		"guild_id":   guildID,
		"channel_id": channelID,
		"text":       text,
	}}
}

// GetChannelMessages returns the newest messages first.
func GetChannelMessages(guildID, channelID uint64) Request {
	return Request{Op: OpGetChannelMessages, Params: map[string]interface{}{
		"guild_id":   guildID,
		"channel_id": channelID,
	}}
}

// GetMessage reads a single message.
func GetMessage(guildID, channelID, messageID uint64) Request {
	return Request{Op: OpGetMessage, Params: map[string]interface{}{
		"guild_id":   guildID,
		"channel_id": channelID,
		"message_id": messageID,
	}}
}

// UpdateMessageText replaces the text of a message the session's user wrote.
func UpdateMessageText(guildID, channelID, messageID uint64, text string) Request {
	return Request{Op: OpUpdateMessageText, Params: map[string]interface{}{
		"guild_id":    guildID,
		"channel_id":  channelID,
		"message_id":  messageID,
		"new_content": text,
	}}
}

// Typing notifies a channel that the session's user is typing.
func Typing(guildID, channelID uint64) Request {
	return Request{Op: OpTyping, Params: map[string]interface{}{
		"guild_id":   guildID,
		"channel_id": channelID,
	}}
}

// QueryPermission asks whether the session may use a permission node, e.g. "messages.send".
func QueryPermission(guildID, channelID uint64, node string) Request {
	return Request{Op: OpQueryPermission, Params: map[string]interface{}{
		"guild_id":   guildID,
		"channel_id": channelID,
		"check_for":  node,
	}}
}

// User statuses accepted by UpdateStatus.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// UpdateStatus sets the session user's status.
func UpdateStatus(status string) Request {
	return Request{Op: OpUpdateProfile, Params: map[string]interface{}{"new_status": status}}
}

// UpdateIsBot sets whether the session's user is marked as a bot.
func UpdateIsBot(isBot bool) Request {
	return Request{Op: OpUpdateProfile, Params: map[string]interface{}{"new_is_bot": isBot}}
}

// GetUser reads a user's profile.
func GetUser(userID uint64) Request {
	return Request{Op: OpGetUser, Params: map[string]interface{}{"user_id": userID}}
}

// GetEmotePacks lists the emote packs the session's user has.
func GetEmotePacks() Request {
	return Request{Op: OpGetEmotePacks}
}
