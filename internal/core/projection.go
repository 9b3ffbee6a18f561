package core

import (
	"go.uber.org/zap"

	"clubledger-backend-go/internal/db"
	"clubledger-backend-go/internal/models"
)

// PendingUsersQuery selects users awaiting approval.
func PendingUsersQuery() db.Query {
	return db.Query{Collection: db.UsersCollection, Field: "role", Op: db.OpEqual, Value: string(models.RolePending)}
}

// MembersQuery selects accepted members.
func MembersQuery() db.Query {
	return db.Query{Collection: db.UsersCollection, Field: "role", Op: db.OpEqual, Value: string(models.RoleMember)}
}

// UpcomingGamesQuery selects games whose payment is still the "pending" string.
func UpcomingGamesQuery() db.Query {
	return db.Query{Collection: db.GamesCollection, Field: "payment", Op: db.OpEqual, Value: models.PaymentStatusPending}
}

// PastGamesQuery selects settled games. A pending payment has no amount
// field, so the two game queries never overlap.
func PastGamesQuery() db.Query {
	return db.Query{Collection: db.GamesCollection, Field: "payment.amount", Op: db.OpGreater, Value: 0}
}

// projectUsers decodes a snapshot, dropping records that fail to decode.
func projectUsers(logger *zap.Logger) func([]db.Document) []*models.User {
	return func(docs []db.Document) []*models.User {
		users := make([]*models.User, 0, len(docs))
		for _, doc := range docs {
			user, err := models.DecodeUser(doc.ID, doc.Data)
			if err != nil {
				logger.Warn("Skipping malformed user document", zap.String("id", doc.ID), zap.Error(err))
				continue
			}
			users = append(users, user)
		}
		return users
	}
}

func projectGames(logger *zap.Logger) func([]db.Document) []*models.Game {
	return func(docs []db.Document) []*models.Game {
		games := make([]*models.Game, 0, len(docs))
		for _, doc := range docs {
			game, err := models.DecodeGame(doc.ID, doc.Data)
			if err != nil {
				logger.Warn("Skipping malformed game document", zap.String("id", doc.ID), zap.Error(err))
				continue
			}
			games = append(games, game)
		}
		return games
	}
}
