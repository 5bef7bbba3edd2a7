package chatRepo

import (
	"parkwise/config"
	"parkwise/database"

	"go.mongodb.org/mongo-driver/mongo"
)

type mongoChatStore struct {
	threads      *mongo.Collection
	approvals    *mongo.Collection
	reservations *mongo.Collection
}

// NewMongoStore returns a Persistence backed by MongoDB collections for
// threads, approvals, and the reservation ledger.
func NewMongoStore() Persistence {
	db := database.MongoClient.Database(config.AppConfig.DatabaseName)
	return &mongoChatStore{
		threads:      db.Collection("threads"),
		approvals:    db.Collection("approvals"),
		reservations: db.Collection("reservations"),
	}
}
