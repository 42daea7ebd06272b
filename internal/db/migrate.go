package db

import (
	"github.com/suPer8Hu/whisperbox/internal/links"
	"github.com/suPer8Hu/whisperbox/internal/messages"
	"github.com/suPer8Hu/whisperbox/internal/session"
	"github.com/suPer8Hu/whisperbox/internal/tokens"
	"github.com/suPer8Hu/whisperbox/internal/users"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the bot uses.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&users.User{},
		&links.Link{},
		&messages.Message{},
		&messages.Thread{},
		&messages.ThreadMessage{},
		&tokens.CallbackToken{},
		&session.State{},
	)
}
