package auth

import (
	"log/slog"
	"strconv"

	"github.com/samber/lo"
)

// authenticator recognises bot admins by platform user id.
type authenticator struct {
	adminIDs []string
}

func NewAuthenticator(adminUserIDs []int64) *authenticator {
	slog.Info("bot admin user IDs", "user_ids", adminUserIDs)

	return &authenticator{
		adminIDs: lo.Map(adminUserIDs, func(id int64, _ int) string {
			return strconv.FormatInt(id, 10)
		}),
	}
}

func (a *authenticator) IsAuthorized(userID string) bool {
	return userID != "" && lo.Contains(a.adminIDs, userID)
}
