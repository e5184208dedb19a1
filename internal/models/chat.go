package models

import "time"

// ChatChannel distinguishes lobby chat from room chat.
type ChatChannel string

const (
	ChannelLobby ChatChannel = "lobby"
	ChannelRoom  ChatChannel = "room"
)

// ChatMessage is one lobby or room chat entry as stored and broadcast.
type ChatMessage struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
	Channel   ChatChannel `json:"channel"`
}
