package database

import "socialnet/internal/models"

// PersistentModels lists the models owned by the schema.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Post{},
		&models.Conversation{},
	}
}
