// Command inspect dumps the badger keyspace of a chat-core data directory.
// Read-only; safe to point at a live daemon's directory copy.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"chat-core/domain"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	// Default to sessions; "msg:", "notif:" and "nset:" are the other
	// primary prefixes. "idx:" rows are secondary indexes and are skipped.
	prefix := flag.String("prefix", "sess:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Time", "Entity ID", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			if strings.HasPrefix(key, "idx:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append(rowFor(key, v))
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Green.Printf("\n%d records under prefix %q\n", rows, *prefix)
}

// rowFor decodes a record by its key prefix. Decoding failures degrade to a
// raw row instead of stopping the scan.
func rowFor(key string, val []byte) []string {
	switch {
	case strings.HasPrefix(key, "sess:"):
		var s domain.Session
		if err := cbor.Unmarshal(val, &s); err == nil {
			assignee := "-"
			if s.AssignedAgentID != nil {
				assignee = short(s.AssignedAgentID.String())
			}
			return []string{key, "SESSION", s.StartedAt.Format("15:04:05"),
				short(s.ID.String()), string(s.Status), "agent=" + assignee}
		}
	case strings.HasPrefix(key, "msg:"):
		var m domain.Message
		if err := cbor.Unmarshal(val, &m); err == nil {
			visibility := "public"
			if m.IsPrivate {
				visibility = "private"
			}
			return []string{key, "MESSAGE", m.CreatedAt.Format("15:04:05"),
				short(m.ID.String()),
				fmt.Sprintf("seq=%d %s", m.Seq, visibility),
				fmt.Sprintf("%s: %s", m.AuthorName, truncate(m.Content, 48))}
		}
	case strings.HasPrefix(key, "notif:"):
		var n domain.Notification
		if err := cbor.Unmarshal(val, &n); err == nil {
			state := "unread"
			if n.IsRead {
				state = "read"
			}
			return []string{key, "NOTIF", n.CreatedAt.Format("15:04:05"),
				short(n.ID.String()),
				fmt.Sprintf("%s/%s %s", n.Type, n.Priority, state),
				truncate(n.Title, 48)}
		}
	case strings.HasPrefix(key, "nset:"):
		var s domain.NotificationSettings
		if err := cbor.Unmarshal(val, &s); err == nil {
			return []string{key, "SETTINGS", "--:--:--", short(s.AgentID.String()), "-",
				fmt.Sprintf("email=%t slack=%t sms=%t push=%t",
					s.EmailEnabled, s.SlackEnabled, s.SMSEnabled, s.PushEnabled)}
		}
	}
	return []string{key, "RAW", "--:--:--", "--------", "-",
		fmt.Sprintf("Size: %d bytes", len(val))}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)
	return badger.Open(opts)
}
