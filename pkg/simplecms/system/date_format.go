package system

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms/entity"
)

// DateFormatEntityTypeID is the entity type id of date formats.
const DateFormatEntityTypeID = "date_format"

// DateFormatConfigPrefix prefixes the config names date formats are stored
// under, e.g. "system.date_format.medium".
const DateFormatConfigPrefix = "system.date_format."

// DateFormatEntityType describes the date format config entity.
func DateFormatEntityType() *entity.EntityType {
	return &entity.EntityType{
		ID:              DateFormatEntityTypeID,
		Label:           "Date format",
		Class:           "DateFormat",
		Group:           "configuration",
		ConfigPrefix:    "date_format",
		AdminPermission: "administer site configuration",
		Keys:            map[string]string{"id": "id", "label": "label"},
		Handlers:        map[string]any{"access": "DateFormatAccessHandler"},
	}
}

// DateFormat is a named date pattern. Locked formats ship with the system
// and cannot be changed or removed.
type DateFormat struct {
	UUID     string `json:"uuid"`
	FormatID string `json:"id"`
	Label    string `json:"label"`
	Pattern  string `json:"pattern"`
	Locked   bool   `json:"locked"`
	Status   bool   `json:"status"`
}

// NewDateFormat returns an enabled, unlocked format with a fresh UUID.
func NewDateFormat(id, label, pattern string) *DateFormat {
	return &DateFormat{
		UUID:     uuid.New().String(),
		FormatID: id,
		Label:    label,
		Pattern:  pattern,
		Status:   true,
	}
}

func (f *DateFormat) EntityTypeID() string { return DateFormatEntityTypeID }
func (f *DateFormat) ID() string           { return f.FormatID }
func (f *DateFormat) Bundle() string       { return DateFormatEntityTypeID }
func (f *DateFormat) IsLocked() bool       { return f.Locked }

// ConfigName returns the config object name the format is stored under.
func (f *DateFormat) ConfigName() string {
	return DateFormatConfigPrefix + f.FormatID
}

// ToConfig converts the format to raw config data.
func (f *DateFormat) ToConfig() map[string]any {
	return map[string]any{
		"uuid":         f.UUID,
		"langcode":     "en",
		"status":       f.Status,
		"dependencies": map[string]any{},
		"id":           f.FormatID,
		"label":        f.Label,
		"locked":       f.Locked,
		"pattern":      f.Pattern,
	}
}

// DateFormatFromConfig builds a format from raw config data.
func DateFormatFromConfig(data map[string]any) (*DateFormat, error) {
	f := &DateFormat{}
	var ok bool
	if f.FormatID, ok = data["id"].(string); !ok || f.FormatID == "" {
		return nil, errors.New("date format id is required")
	}
	f.UUID, _ = data["uuid"].(string)
	f.Label, _ = data["label"].(string)
	f.Pattern, _ = data["pattern"].(string)
	f.Locked, _ = data["locked"].(bool)
	f.Status = true
	if status, ok := data["status"].(bool); ok {
		f.Status = status
	}
	return f, nil
}

// DateFormatAccessHandler is the access control handler of date formats.
type DateFormatAccessHandler struct {
	fallback entity.AccessControlHandler
}

// NewDateFormatAccessHandler returns a handler that defers to fallback for
// everything it does not decide itself. A nil fallback uses the default
// handler of the date format entity type.
func NewDateFormatAccessHandler(fallback entity.AccessControlHandler) *DateFormatAccessHandler {
	if fallback == nil {
		fallback = entity.NewDefaultAccessHandler(DateFormatEntityType())
	}
	return &DateFormatAccessHandler{fallback: fallback}
}

// Access implements entity.AccessControlHandler.
func (h *DateFormatAccessHandler) Access(e entity.Entity, operation, langcode string, account entity.Account) bool {
	// There are no restrictions on viewing a date format.
	if operation == entity.OpView {
		return true
	}
	// Locked date formats cannot be updated or deleted.
	if slices.Contains([]string{entity.OpUpdate, entity.OpDelete}, operation) {
		if l, ok := e.(entity.Locker); ok && l.IsLocked() {
			return false
		}
	}
	return h.fallback.Access(e, operation, langcode, account)
}

// DefaultDateFormats returns the formats installed with the system. The
// fallback and HTML formats are locked.
func DefaultDateFormats() []*DateFormat {
	formats := []*DateFormat{
		NewDateFormat("fallback", "Fallback date format", "D, m/d/Y - H:i"),
		NewDateFormat("html_date", "HTML Date", "Y-m-d"),
		NewDateFormat("html_datetime", "HTML Datetime", `Y-m-d\TH:i:sO`),
		NewDateFormat("long", "Default long date", "l, F j, Y - H:i"),
		NewDateFormat("medium", "Default medium date", "D, m/d/Y - H:i"),
		NewDateFormat("short", "Default short date", "m/d/Y - H:i"),
	}
	for _, f := range formats {
		if f.FormatID == "fallback" || strings.HasPrefix(f.FormatID, "html_") {
			f.Locked = true
		}
	}
	return formats
}

// String implements fmt.Stringer.
func (f *DateFormat) String() string {
	return fmt.Sprintf("%s (%s)", f.Label, f.Pattern)
}
