package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Action is the closed set of audit actions
type Action string

const (
	ActionLogin      Action = "LOGIN"
	ActionCopy       Action = "COPIAR"
	ActionCreate     Action = "CRIAR"
	ActionEdit       Action = "EDITAR"
	ActionDelete     Action = "EXCLUIR"
	ActionCleanup    Action = "LIMPEZA"
	ActionCreateUser Action = "CRIAR_USER"
	ActionEditUser   Action = "EDITAR_USER"
	ActionDeleteUser Action = "EXCLUIR_USER"
)

var actionLabels = map[Action]string{
	ActionLogin:      "Acessou o sistema",
	ActionCopy:       "Copiou frase",
	ActionCreate:     "Criou nova frase",
	ActionEdit:       "Editou frase",
	ActionDelete:     "Excluiu frase",
	ActionCleanup:    "Limpeza",
	ActionCreateUser: "Criou membro",
	ActionEditUser:   "Editou membro",
	ActionDeleteUser: "Removeu membro",
}

// legacy tags written by older clients
var actionSynonyms = map[string]Action{
	"COPIAR_RANK": ActionCopy,
}

// ParseAction maps a stored tag onto its canonical Action
func ParseAction(s string) (Action, error) {
	tag := strings.ToUpper(strings.TrimSpace(s))
	if a, ok := actionSynonyms[tag]; ok {
		return a, nil
	}
	a := Action(tag)
	if _, ok := actionLabels[a]; !ok {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// Valid reports whether a is a canonical action
func (a Action) Valid() bool {
	_, ok := actionLabels[a]
	return ok
}

// Label is the human readable text shown in the activity feed
func (a Action) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return string(a)
}

// IsUsage reports whether the action counts as a phrase use
func (a Action) IsUsage() bool {
	return a == ActionCopy
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// LogEntry is an append-only audit record of a user action
type LogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(100);not null;index" json:"username"`
	Action    Action    `gorm:"type:varchar(30);not null;index" json:"action"`
	Detail    string    `gorm:"type:text" json:"detail"` // usually a phrase id
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (LogEntry) TableName() string {
	return "activity_logs"
}

// LogEntryView is a log entry joined with the acting user's display name and role
type LogEntryView struct {
	LogEntry
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}
