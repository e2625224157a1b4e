package chattest

import (
	"net/http"
	"sort"

	"github.com/wesleyorama2/chatload/internal/chat"
)

type params struct {
	GuildID      uint64 `json:"guild_id"`
	ChannelID    uint64 `json:"channel_id"`
	MessageID    uint64 `json:"message_id"`
	UserID       uint64 `json:"user_id"`
	GuildName    string `json:"guild_name"`
	ChannelName  string `json:"channel_name"`
	InviteID     string `json:"invite_id"`
	PossibleUses int    `json:"possible_uses"`
	Text         string `json:"text"`
	NewContent   string `json:"new_content"`
	CheckFor     string `json:"check_for"`
	NewStatus    string `json:"new_status"`
	NewIsBot     *bool  `json:"new_is_bot"`
}

type object = map[string]interface{}

// memberPermissions are granted to every member; owners hold every node.
var memberPermissions = map[string]bool{
	"messages.send": true,
	"messages.view": true,
}

func (s *Service) dispatch(u *user, op chat.Operation, p params) (object, error) {
	switch op {
	case chat.OpCheckLoggedIn:
		return object{}, nil

	case chat.OpGetEmotePacks:
		return object{"packs": []object{}}, nil

	case chat.OpListGuilds:
		guilds := []object{}
		for _, id := range s.sortedGuildIDs() {
			if s.guilds[id].members[u.id] {
				guilds = append(guilds, object{"guild_id": id})
			}
		}
		return object{"guilds": guilds}, nil

	case chat.OpCreateGuild:
		if p.GuildName == "" {
			return nil, reject(op, http.StatusBadRequest, "guild name required")
		}
		g := &guild{
			id:      s.newID(),
			name:    p.GuildName,
			owner:   u.id,
			members: map[uint64]bool{u.id: true},
		}
		if s.DefaultChannel != "" {
			g.channels = append(g.channels, &channel{id: s.newID(), name: s.DefaultChannel})
		}
		s.guilds[g.id] = g
		return object{"guild_id": g.id}, nil
	}

	if op == chat.OpJoinGuild {
		inv, ok := s.invites[p.InviteID]
		if !ok {
			return nil, reject(op, http.StatusNotFound, "no such invite")
		}
		g, ok := s.guilds[inv.guild]
		if !ok {
			return nil, reject(op, http.StatusNotFound, "no such guild")
		}
		if g.members[u.id] {
			return nil, reject(op, http.StatusConflict, "already a member")
		}
		if inv.limit > 0 && inv.uses >= inv.limit {
			return nil, reject(op, http.StatusForbidden, "invite used up")
		}
		inv.uses++
		g.members[u.id] = true
		s.publish(g.id, chat.Event{Type: "member-joined", GuildID: g.id})
		return object{"guild_id": g.id}, nil
	}

	if op == chat.OpUpdateProfile {
		if p.NewStatus != "" {
			u.status = p.NewStatus
		}
		if p.NewIsBot != nil {
			u.isBot = *p.NewIsBot
		}
		return object{}, nil
	}

	if op == chat.OpGetUser {
		for _, other := range s.users {
			if other.id == p.UserID {
				return object{"user": object{
					"user_id":     other.id,
					"user_name":   other.displayName,
					"user_status": other.status,
					"is_bot":      other.isBot,
				}}, nil
			}
		}
		return nil, reject(op, http.StatusNotFound, "no such user")
	}

	// Everything below is scoped to a guild the caller belongs to.
	g, ok := s.guilds[p.GuildID]
	if !ok {
		return nil, reject(op, http.StatusNotFound, "no such guild")
	}
	if !g.members[u.id] {
		return nil, reject(op, http.StatusForbidden, "not a member")
	}
	owner := g.owner == u.id

	switch op {
	case chat.OpGetGuild:
		return object{"guild": object{
			"guild_id":   g.id,
			"guild_name": g.name,
			"owner_id":   g.owner,
		}}, nil

	case chat.OpUpdateGuild:
		if !owner {
			return nil, reject(op, http.StatusForbidden, "not the owner")
		}
		g.name = p.GuildName
		return object{}, nil

	case chat.OpDeleteGuild:
		if !owner {
			return nil, reject(op, http.StatusForbidden, "not the owner")
		}
		delete(s.guilds, g.id)
		for id, inv := range s.invites {
			if inv.guild == g.id {
				delete(s.invites, id)
			}
		}
		return object{}, nil

	case chat.OpGetGuildMembers:
		members := make([]uint64, 0, len(g.members))
		for id := range g.members {
			members = append(members, id)
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		return object{"members": members}, nil

	case chat.OpGetGuildRoles:
		return object{"roles": []object{{"role_id": g.id, "name": "everyone"}}}, nil

	case chat.OpListChannels:
		channels := []object{}
		for _, c := range g.channels {
			channels = append(channels, object{"channel_id": c.id, "channel_name": c.name})
		}
		return object{"channels": channels}, nil

	case chat.OpCreateChannel:
		if !owner {
			return nil, reject(op, http.StatusForbidden, "not the owner")
		}
		c := &channel{id: s.newID(), name: p.ChannelName}
		g.channels = append(g.channels, c)
		return object{"channel_id": c.id}, nil

	case chat.OpCreateInvite:
		if !owner {
			return nil, reject(op, http.StatusForbidden, "not the owner")
		}
		if _, exists := s.invites[p.InviteID]; exists {
			return nil, reject(op, http.StatusConflict, "invite already exists")
		}
		s.invites[p.InviteID] = &invite{guild: g.id, limit: p.PossibleUses}
		return object{"invite_id": p.InviteID}, nil

	case chat.OpQueryPermission:
		return object{"ok": owner || memberPermissions[p.CheckFor]}, nil
	}

	// Channel-scoped operations.
	c := g.channel(p.ChannelID)
	if c == nil {
		return nil, reject(op, http.StatusNotFound, "no such channel")
	}

	switch op {
	case chat.OpDeleteChannel:
		if !owner {
			return nil, reject(op, http.StatusForbidden, "not the owner")
		}
		for i, existing := range g.channels {
			if existing == c {
				g.channels = append(g.channels[:i], g.channels[i+1:]...)
				break
			}
		}
		return object{}, nil

	case chat.OpTyping:
		s.publish(g.id, chat.Event{Type: "typing", GuildID: g.id})
		return object{}, nil

	case chat.OpSendMessage:
		m := &message{id: s.newID(), author: u.id, text: p.Text}
		c.messages = append(c.messages, m)
		s.publish(g.id, chat.Event{Type: "message-sent", GuildID: g.id})
		return object{"message_id": m.id}, nil

	case chat.OpGetChannelMessages:
		messages := make([]object, 0, len(c.messages))
		for i := len(c.messages) - 1; i >= 0; i-- {
			messages = append(messages, messageObject(c.messages[i]))
		}
		return object{"messages": messages}, nil

	case chat.OpGetMessage, chat.OpUpdateMessageText:
		var m *message
		for _, candidate := range c.messages {
			if candidate.id == p.MessageID {
				m = candidate
				break
			}
		}
		if m == nil {
			return nil, reject(op, http.StatusNotFound, "no such message")
		}
		if op == chat.OpGetMessage {
			return object{"message": messageObject(m)}, nil
		}
		if m.author != u.id {
			return nil, reject(op, http.StatusForbidden, "not the author")
		}
		m.text = p.NewContent
		s.publish(g.id, chat.Event{Type: "message-updated", GuildID: g.id})
		return object{}, nil
	}

	return nil, reject(op, http.StatusNotFound, "unknown operation")
}

// sortedGuildIDs lists guilds in creation order.
func (s *Service) sortedGuildIDs() []uint64 {
	ids := make([]uint64, 0, len(s.guilds))
	for id := range s.guilds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func messageObject(m *message) object {
	return object{"message_id": m.id, "author_id": m.author, "text": m.text}
}
