// Conversation models for the customer-facing dispute chat.
//
// A conversation is opened when the intake flow starts and re-opened when the
// bank rejects a representment and asks the customer for more evidence. Its
// messages are the full customer/assistant exchange for one case.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Conversation represents a dispute discussion owned by a cardholder. Each
// conversation has a generated title and contains the messages exchanged
// between the customer and the assistant.
type Conversation struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_conversations"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null;default:'New dispute'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single utterance within a conversation, authored either by
// the "user" (the cardholder) or the "assistant" (this service, including
// injected evidence-request notices).
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	Role           string         `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content        string         `json:"content"         gorm:"type:text;not null"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent discussion. Messages are cascade-deleted
	// if their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
