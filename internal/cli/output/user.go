package output

import (
	"strconv"
	"time"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
)

// UserView is the printable form of a profile.
type UserView struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	Type              string     `json:"user_type"`
	Avatar            string     `json:"avatar,omitempty"`
	PushNotifications bool       `json:"push_notifications"`
	WeeklyReport      bool       `json:"weekly_report"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewUserView resolves the avatar against apiURL.
func NewUserView(u *domain.User, apiURL string) *UserView {
	if u == nil {
		return nil
	}
	v := &UserView{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Type:              string(u.UserType),
		PushNotifications: u.PushNotifications,
		WeeklyReport:      u.WeeklyReport,
		EmailVerifiedAt:   u.EmailVerifiedAt,
		CreatedAt:         u.CreatedAt,
	}
	if u.Phone != nil {
		v.Phone = *u.Phone
	}
	if u.AvatarURL != nil {
		v.Avatar = domain.AvatarURL(apiURL, *u.AvatarURL)
	}
	return v
}

func (v *UserView) Table() *Table {
	verified := "no"
	if v.EmailVerifiedAt != nil {
		verified = Cell(*v.EmailVerifiedAt)
	}
	return NewTable("FIELD", "VALUE").
		AddRow("ID", strconv.FormatInt(v.ID, 10)).
		AddRow("NAME", Cell(v.Name)).
		AddRow("EMAIL", Cell(v.Email)).
		AddRow("PHONE", Cell(v.Phone)).
		AddRow("TYPE", Cell(v.Type)).
		AddRow("AVATAR", Cell(v.Avatar)).
		AddRow("PUSH NOTIFICATIONS", Cell(v.PushNotifications)).
		AddRow("WEEKLY REPORT", Cell(v.WeeklyReport)).
		AddRow("EMAIL VERIFIED", verified).
		AddRow("MEMBER SINCE", Cell(v.CreatedAt))
}
