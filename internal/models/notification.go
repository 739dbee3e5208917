package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Notification represents an in-app notification record.
// Delivery (push/email/websocket) is handled outside this service.
type Notification struct {
	ID             string       `gorm:"primaryKey;type:varchar(36);column:id"`
	UserID         string       `gorm:"type:varchar(36);not null;index;column:user_id"`
	Type           string       `gorm:"type:varchar(64);not null;column:type"`
	Title          string       `gorm:"type:varchar(255);column:title"`
	Message        string       `gorm:"type:text;column:message"`
	Data           string       `gorm:"type:text;column:data"` // JSON payload
	DeliveryMethod string       `gorm:"type:varchar(16);not null;default:'in_app';column:delivery_method"`
	DeliveryStatus string       `gorm:"type:varchar(16);not null;default:'sent';column:delivery_status"`
	ReadAt         sql.NullTime `gorm:"column:read_at"`
	CreatedAt      time.Time    `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// Notification type constants
const (
	NotifyTypeConversionPrompt    = "post_conversion_prompt"
	NotifyTypeConvertedToEvent    = "post_converted_to_event"
	NotifyTypeInvitationConverted = "post_invitation_converted"
	NotifyTypeInvitationSent      = "post_invitation_sent"
)

// Delivery constants
const (
	DeliveryMethodInApp = "in_app"
	DeliveryMethodEmail = "email"

	DeliveryStatusSent    = "sent"
	DeliveryStatusPending = "pending"
	DeliveryStatusFailed  = "failed"
)

// SetData encodes the structured payload onto the notification
func (n *Notification) SetData(data map[string]interface{}) error {
	if data == nil {
		n.Data = ""
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	n.Data = string(raw)
	return nil
}

// DataMap decodes the structured payload, returning an empty map when unset
func (n *Notification) DataMap() map[string]interface{} {
	if n.Data == "" {
		return map[string]interface{}{}
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(n.Data), &data); err != nil {
		return map[string]interface{}{}
	}
	return data
}
