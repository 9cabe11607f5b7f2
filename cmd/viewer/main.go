package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"helplink/domain"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

type viewerConfig struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
}

// The viewer opens the database read-only next to a running server and
// renders conversations and messages for quick inspection.
func main() {
	_ = godotenv.Load()
	var config viewerConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	conversations, messages, err := load(db)
	if err != nil {
		log.Fatalf("Failed to read database: %v", err)
	}

	color.Bold.Printf("Conversations (%d)\n", len(conversations))
	convTable := tablewriter.NewWriter(os.Stdout)
	convTable.SetHeader([]string{"ID", "Post", "Helper", "Requester", "Last message", "Updated"})
	for _, c := range conversations {
		convTable.Append([]string{
			c.ID.String()[:8],
			c.PostID,
			c.HelperID,
			c.RequesterID,
			truncate(c.LastMessage, 32),
			c.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	convTable.Render()

	color.Bold.Printf("\nMessages (%d)\n", len(messages))
	msgTable := tablewriter.NewWriter(os.Stdout)
	msgTable.SetHeader([]string{"Conversation", "Sender", "Text", "Lang", "Read", "At"})
	for _, m := range messages {
		read := color.Red.Sprint("no")
		if m.Read {
			read = color.Green.Sprint("yes")
		}
		msgTable.Append([]string{
			m.ConversationID.String()[:8],
			m.SenderID,
			truncate(m.Text, 40),
			m.Lang,
			read,
			m.CreatedAt.Format("15:04:05.000"),
		})
	}
	msgTable.Render()
}

func load(db *badger.DB) ([]domain.Conversation, []domain.Message, error) {
	var conversations []domain.Conversation
	var messages []domain.Message
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			switch {
			case strings.HasPrefix(key, "conv:"):
				var c domain.Conversation
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &c)
				}); err != nil {
					return err
				}
				conversations = append(conversations, c)
			case strings.HasPrefix(key, "msg:"):
				var m domain.Message
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &m)
				}); err != nil {
					return err
				}
				messages = append(messages, m)
			}
		}
		return nil
	})
	return conversations, messages, err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...", s[:max])
}
