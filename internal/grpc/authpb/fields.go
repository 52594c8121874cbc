package authpb

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/magabrotheeeer/bizledger/internal/models"
)

const timeLayout = time.RFC3339Nano

// EncodeDetails упаковывает детали ошибки для trailer-метаданных.
func EncodeDetails(details map[string]any) (string, error) {
	const op = "authpb.EncodeDetails"

	s, err := structpb.NewStruct(details)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	raw, err := proto.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(raw), nil
}

// DecodeDetails разбирает детали ошибки из trailer-метаданных.
// Числа возвращаются как float64.
func DecodeDetails(raw string) (map[string]any, error) {
	const op = "authpb.DecodeDetails"

	s := new(structpb.Struct)
	if err := proto.Unmarshal([]byte(raw), s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.AsMap(), nil
}

func entitlementToMap(s models.EntitlementStatus) map[string]any {
	return map[string]any{
		"is_active":      s.IsActive,
		"plan":           optString(s.Plan),
		"start_date":     optTime(s.StartDate),
		"end_date":       optTime(s.EndDate),
		"days_remaining": s.DaysRemaining,
		"is_trial":       s.IsTrial,
	}
}

func entitlementFromFields(f fields) (models.EntitlementStatus, error) {
	start, err := f.optTime("start_date")
	if err != nil {
		return models.EntitlementStatus{}, err
	}
	end, err := f.optTime("end_date")
	if err != nil {
		return models.EntitlementStatus{}, err
	}
	return models.EntitlementStatus{
		IsActive:      f.boolean("is_active"),
		Plan:          f.optStr("plan"),
		StartDate:     start,
		EndDate:       end,
		DaysRemaining: f.integer("days_remaining"),
		IsTrial:       f.boolean("is_trial"),
	}, nil
}

func userToMap(u models.PublicUser) map[string]any {
	var sub any
	if u.Subscription != nil {
		sub = entitlementToMap(*u.Subscription)
	}
	return map[string]any{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"full_name":    u.FullName,
		"phone":        optString(u.Phone),
		"created_at":   formatTime(u.CreatedAt),
		"last_login":   optTime(u.LastLogin),
		"subscription": sub,
	}
}

func userFromFields(f fields) (models.PublicUser, error) {
	createdAt, err := f.time("created_at")
	if err != nil {
		return models.PublicUser{}, err
	}
	lastLogin, err := f.optTime("last_login")
	if err != nil {
		return models.PublicUser{}, err
	}
	u := models.PublicUser{
		ID:        f.str("id"),
		Username:  f.str("username"),
		Email:     f.str("email"),
		FullName:  f.str("full_name"),
		Phone:     f.optStr("phone"),
		CreatedAt: createdAt,
		LastLogin: lastLogin,
	}
	if !isNull(f["subscription"]) {
		sub, err := entitlementFromFields(f.sub("subscription"))
		if err != nil {
			return models.PublicUser{}, fmt.Errorf("subscription: %w", err)
		}
		u.Subscription = &sub
	}
	return u, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// fields читает поля Struct. Отсутствующее поле читается как null.
type fields map[string]*structpb.Value

func (f fields) str(key string) string {
	return f[key].GetStringValue()
}

func (f fields) boolean(key string) bool {
	return f[key].GetBoolValue()
}

func (f fields) integer(key string) int {
	return int(f[key].GetNumberValue())
}

func (f fields) sub(key string) fields {
	return f[key].GetStructValue().GetFields()
}

func (f fields) optStr(key string) *string {
	v := f[key]
	if isNull(v) {
		return nil
	}
	s := v.GetStringValue()
	return &s
}

func (f fields) time(key string) (time.Time, error) {
	t, err := time.Parse(timeLayout, f.str(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", key, err)
	}
	return t, nil
}

func (f fields) optTime(key string) (*time.Time, error) {
	if isNull(f[key]) {
		return nil, nil
	}
	t, err := f.time(key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func isNull(v *structpb.Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.GetKind().(*structpb.Value_NullValue)
	return ok
}
