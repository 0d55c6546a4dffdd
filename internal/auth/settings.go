package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/josemwas/HR-management/internal/audit"
)

const (
	SettingTypeString  = "string"
	SettingTypeInteger = "integer"
	SettingTypeBoolean = "boolean"
	SettingTypeJSON    = "json"

	DefaultSettingCategory = "general"

	// RedactedValue replaces the value of sensitive settings in every listing.
	RedactedValue = "***"
)

// Setting is one organization configuration entry. Value holds the text encoding for DataType.
type Setting struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Category       string    `json:"category"`
	Key            string    `json:"key"`
	Value          string    `json:"-"`
	DataType       string    `json:"data_type"`
	Description    string    `json:"description,omitempty"`
	IsSensitive    bool      `json:"is_sensitive"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Typed decodes Value according to DataType.
func (s Setting) Typed() (any, error) {
	switch s.DataType {
	case SettingTypeBoolean:
		return strings.EqualFold(strings.TrimSpace(s.Value), "true"), nil
	case SettingTypeInteger:
		if strings.TrimSpace(s.Value) == "" {
			return int64(0), nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("setting %s: decode integer: %w", s.Key, err)
		}
		return n, nil
	case SettingTypeJSON:
		if strings.TrimSpace(s.Value) == "" {
			return map[string]any{}, nil
		}
		var v any
		if err := json.Unmarshal([]byte(s.Value), &v); err != nil {
			return nil, fmt.Errorf("setting %s: decode json: %w", s.Key, err)
		}
		return v, nil
	default:
		return s.Value, nil
	}
}

// SettingView is the read-out form of a setting.
type SettingView struct {
	Key         string    `json:"key"`
	Category    string    `json:"category"`
	DataType    string    `json:"data_type"`
	Description string    `json:"description,omitempty"`
	Value       any       `json:"value"`
	IsSensitive bool      `json:"is_sensitive"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// View renders the setting, replacing sensitive values with RedactedValue.
func (s Setting) View() (SettingView, error) {
	v := SettingView{
		Key:         s.Key,
		Category:    s.Category,
		DataType:    s.DataType,
		Description: s.Description,
		IsSensitive: s.IsSensitive,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.IsSensitive {
		v.Value = RedactedValue
		return v, nil
	}
	typed, err := s.Typed()
	if err != nil {
		return SettingView{}, err
	}
	v.Value = typed
	return v, nil
}

// SettingInput is one requested write. Nil optional fields keep the stored value, or the
// default for a new key.
type SettingInput struct {
	Key         string
	Value       any
	Category    *string
	DataType    *string
	Description *string
	IsSensitive *bool
}

// SettingChange is the result of one upsert.
type SettingChange struct {
	Previous *Setting
	Current  Setting
}

// SettingList is a listing grouped by category.
type SettingList struct {
	Settings []SettingView            `json:"settings"`
	Grouped  map[string][]SettingView `json:"grouped"`
}

func validDataType(t string) bool {
	switch t {
	case SettingTypeString, SettingTypeInteger, SettingTypeBoolean, SettingTypeJSON:
		return true
	}
	return false
}

// EncodeSettingValue converts v to the stored text form for dataType.
func EncodeSettingValue(dataType string, v any) (string, error) {
	switch dataType {
	case SettingTypeString:
		switch t := v.(type) {
		case nil:
			return "", nil
		case string:
			return t, nil
		case bool:
			return strconv.FormatBool(t), nil
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		case json.Number:
			return t.String(), nil
		case int:
			return strconv.Itoa(t), nil
		case int64:
			return strconv.FormatInt(t, 10), nil
		default:
			raw, err := json.Marshal(t)
			if err != nil {
				return "", fmt.Errorf("%w: value is not representable as string", ErrInvalidInput)
			}
			return string(raw), nil
		}
	case SettingTypeInteger:
		n, err := toInt64(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case SettingTypeBoolean:
		switch t := v.(type) {
		case bool:
			return strconv.FormatBool(t), nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(t))
			if err != nil {
				return "", fmt.Errorf("%w: %q is not a boolean", ErrInvalidInput, t)
			}
			return strconv.FormatBool(b), nil
		default:
			return "", fmt.Errorf("%w: boolean value expected", ErrInvalidInput)
		}
	case SettingTypeJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: value is not valid json", ErrInvalidInput)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("%w: unsupported data_type %q", ErrInvalidInput, dataType)
	}
}

// maxExactFloatInt is the largest magnitude at which every integer has an exact float64.
const maxExactFloatInt = 1 << 53

// floatToInt64 accepts whole values inside the int64 range. float64(math.MaxInt64) rounds
// up to 2^63, so the upper bound is exclusive.
func floatToInt64(f float64) (int64, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: integer value expected", ErrInvalidInput)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: integer value out of range", ErrInvalidInput)
	}
	return int64(f), nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		return floatToInt64(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil || math.Abs(f) > maxExactFloatInt {
			return 0, fmt.Errorf("%w: %s is not an integer in range", ErrInvalidInput, t)
		}
		return floatToInt64(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidInput, t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: integer value expected", ErrInvalidInput)
	}
}

// GetSetting returns the typed value of key, or def when the key is absent.
func (s *RBACService) GetSetting(ctx context.Context, organizationID, key string, def any) (any, error) {
	organizationID = strings.TrimSpace(organizationID)
	key = strings.TrimSpace(key)
	if organizationID == "" || key == "" {
		return nil, fmt.Errorf("%w: organization_id and key are required", ErrInvalidInput)
	}
	setting, err := s.store.GetSetting(ctx, organizationID, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return nil, err
	}
	return setting.Typed()
}

// GetSettingView returns one setting of the actor's organization with redaction applied.
func (s *RBACService) GetSettingView(ctx context.Context, actor Actor, key string) (SettingView, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return SettingView{}, fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	setting, err := s.store.GetSetting(ctx, actor.OrganizationID, key)
	if err != nil {
		return SettingView{}, err
	}
	return setting.View()
}

// ListSettings lists the actor organization's settings, optionally for one category.
func (s *RBACService) ListSettings(ctx context.Context, actor Actor, category string) (SettingList, error) {
	settings, err := s.store.ListSettings(ctx, actor.OrganizationID, strings.TrimSpace(category))
	if err != nil {
		return SettingList{}, err
	}
	list := SettingList{
		Settings: make([]SettingView, 0, len(settings)),
		Grouped:  map[string][]SettingView{},
	}
	for _, st := range settings {
		view, err := st.View()
		if err != nil {
			return SettingList{}, err
		}
		list.Settings = append(list.Settings, view)
		list.Grouped[view.Category] = append(list.Grouped[view.Category], view)
	}
	return list, nil
}

// SetSetting upserts a single setting and audits it.
func (s *RBACService) SetSetting(ctx context.Context, actor Actor, in SettingInput) (SettingView, error) {
	if strings.TrimSpace(in.Key) == "" {
		return SettingView{}, fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	changes, err := s.putSettings(ctx, actor.OrganizationID, actor.EmployeeID, []SettingInput{in})
	if err != nil {
		return SettingView{}, err
	}
	return changes[0].Current.View()
}

// SetSettings upserts a batch in one transaction. Items without a key are skipped; any
// invalid item rejects the whole batch before anything is written.
func (s *RBACService) SetSettings(ctx context.Context, actor Actor, items []SettingInput) ([]string, error) {
	batch := make([]SettingInput, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Key) == "" {
			continue
		}
		batch = append(batch, item)
	}
	if len(batch) == 0 {
		return []string{}, nil
	}
	changes, err := s.putSettings(ctx, actor.OrganizationID, actor.EmployeeID, batch)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(changes))
	for _, c := range changes {
		keys = append(keys, c.Current.Key)
	}
	return keys, nil
}

func (s *RBACService) putSettings(ctx context.Context, organizationID, actorID string, items []SettingInput) ([]SettingChange, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(items))
	rows := make([]Setting, 0, len(items))
	for _, in := range items {
		key := strings.TrimSpace(in.Key)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %s in batch", ErrInvalidInput, key)
		}
		seen[key] = struct{}{}

		row := Setting{
			OrganizationID: organizationID,
			Key:            key,
			Category:       DefaultSettingCategory,
			DataType:       SettingTypeString,
		}
		existing, err := s.store.GetSetting(ctx, organizationID, key)
		switch {
		case err == nil:
			row.Category = existing.Category
			row.DataType = existing.DataType
			row.Description = existing.Description
			row.IsSensitive = existing.IsSensitive
		case errors.Is(err, ErrNotFound):
		default:
			return nil, err
		}
		if in.Category != nil {
			if c := strings.TrimSpace(*in.Category); c != "" {
				row.Category = c
			}
		}
		if in.DataType != nil {
			t := strings.TrimSpace(strings.ToLower(*in.DataType))
			if !validDataType(t) {
				return nil, fmt.Errorf("%w: unsupported data_type %q for %s", ErrInvalidInput, *in.DataType, key)
			}
			row.DataType = t
		}
		if in.Description != nil {
			row.Description = strings.TrimSpace(*in.Description)
		}
		if in.IsSensitive != nil {
			row.IsSensitive = *in.IsSensitive
		}
		value, err := EncodeSettingValue(row.DataType, in.Value)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
		row.Value = value
		rows = append(rows, row)
	}

	changes, err := s.store.PutSettings(ctx, organizationID, rows)
	if err != nil {
		return nil, err
	}
	for _, c := range changes {
		s.record(ctx, audit.Entry{
			OrganizationID: organizationID,
			ActorID:        actorID,
			Action:         ActionUpdateSetting,
			ResourceType:   ResourceSetting,
			ResourceID:     c.Current.ID,
		}, settingSnapshot(c.Previous), settingSnapshot(&c.Current))
	}
	return changes, nil
}

type settingAuditValue struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	DataType string `json:"data_type"`
}

func settingSnapshot(st *Setting) any {
	if st == nil {
		return nil
	}
	v := settingAuditValue{Key: st.Key, Value: st.Value, DataType: st.DataType}
	if st.IsSensitive {
		v.Value = RedactedValue
	}
	return v
}

// DefaultSettings are applied to every organization at initialization.
var DefaultSettings = []SettingInput{
	defaultSetting("organization_name", "My Organization", "general", SettingTypeString, "Organization name"),
	defaultSetting("primary_color", "#667eea", "general", SettingTypeString, "Primary brand color"),
	defaultSetting("timezone", "UTC", "general", SettingTypeString, "Default timezone"),
	defaultSetting("date_format", "YYYY-MM-DD", "general", SettingTypeString, "Date format"),
	defaultSetting("currency", "USD", "general", SettingTypeString, "Default currency"),
	defaultSetting("standard_work_hours", 8, "attendance", SettingTypeInteger, "Standard work hours per day"),
	defaultSetting("grace_period_minutes", 15, "attendance", SettingTypeInteger, "Grace period for late arrival"),
	defaultSetting("require_gps_checkin", false, "attendance", SettingTypeBoolean, "Require GPS for check-in"),
	defaultSetting("auto_checkout", true, "attendance", SettingTypeBoolean, "Auto checkout after work hours"),
	defaultSetting("annual_leave_days", 20, "leaves", SettingTypeInteger, "Annual leave days allocation"),
	defaultSetting("sick_leave_days", 10, "leaves", SettingTypeInteger, "Sick leave days allocation"),
	defaultSetting("personal_leave_days", 5, "leaves", SettingTypeInteger, "Personal leave days allocation"),
	defaultSetting("require_manager_approval", true, "leaves", SettingTypeBoolean, "Require manager approval for leaves"),
	defaultSetting("advance_notice_days", 7, "leaves", SettingTypeInteger, "Advance notice required for leaves"),
	defaultSetting("enable_two_factor", false, "security", SettingTypeBoolean, "Enable two-factor authentication"),
	defaultSetting("session_timeout_minutes", 480, "security", SettingTypeInteger, "Session timeout in minutes"),
	defaultSetting("password_policy", map[string]any{
		"min_length":            8,
		"require_uppercase":     true,
		"require_numbers":       true,
		"require_special_chars": false,
	}, "security", SettingTypeJSON, "Password policy requirements"),
	defaultSetting("email_notifications", true, "notifications", SettingTypeBoolean, "Enable email notifications"),
	defaultSetting("sms_notifications", false, "notifications", SettingTypeBoolean, "Enable SMS notifications"),
}

func defaultSetting(key string, value any, category, dataType, description string) SettingInput {
	return SettingInput{
		Key:         key,
		Value:       value,
		Category:    &category,
		DataType:    &dataType,
		Description: &description,
	}
}
