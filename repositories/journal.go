//go:generate go run go.uber.org/mock/mockgen -source=journal.go -destination=../mocks/mock_journal_repository.go -package=mocks
package repositories

import (
	"board-lab/domain"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/segmentio/ksuid"
)

type EntryKind string

const (
	RoomOpened        EntryKind = "room_opened"
	ParticipantJoined EntryKind = "participant_joined"
	ParticipantLeft   EntryKind = "participant_left"
	StrokeClosed      EntryKind = "stroke_closed"
	StrokeUndone      EntryKind = "stroke_undone"
	StrokeRedone      EntryKind = "stroke_redone"
)

type IJournalRepository interface {
	Append(entry JournalEntry) error
	Entries(room domain.RoomID, cursor *string) ([]JournalEntry, *string, error)
	DropRoom(room domain.RoomID) error
}

type JournalRepository struct {
	db           *badger.DB
	log          *slog.Logger
	limitEntries *int
}

func NewJournalRepository(db *badger.DB, log *slog.Logger, limitEntries *int) JournalRepository {
	return JournalRepository{db: db, log: log, limitEntries: limitEntries}
}

// OpenInMemory opens a badger instance living in process memory only.
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
}

type JournalEntry struct {
	ID          ksuid.KSUID          `json:"id"`
	Room        domain.RoomID        `json:"room"`
	Kind        EntryKind            `json:"kind"`
	Participant domain.ParticipantID `json:"participant,omitempty"`
	Color       string               `json:"color,omitempty"`
	StrokeID    domain.StrokeID      `json:"strokeId,omitempty"`
	Segments    int                  `json:"segments,omitempty"`
	At          time.Time            `json:"at"`
}

// Append stores an entry under "journal:{hex(room)}:{timestamp_padded}:{ksuid}".
// The room id is hex encoded so no room prefix can match the keys of another room.
// The 19-digit padding keeps the keys in chronological order.
func (j JournalRepository) Append(entry JournalEntry) error {
	if entry.ID == ksuid.Nil {
		entry.ID = ksuid.New()
	}
	key := fmt.Sprintf("%s%019d:%s", roomPrefix(entry.Room), entry.At.UnixNano(), entry.ID)
	bytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// Entries returns the entries of a room, newest first.
// The returned cursor resumes the scan after the last entry of the page.
func (j JournalRepository) Entries(room domain.RoomID, cursor *string) ([]JournalEntry, *string, error) {
	var entries []JournalEntry
	var lastKey string
	err := j.db.View(func(txn *badger.Txn) error {
		prefixStr := roomPrefix(room)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append([]byte(prefixStr), []byte("9999999999999999999")...)
		default:
			seekKey = append([]byte(prefixStr), []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if j.limitEntries != nil && len(entries) == *j.limitEntries {
				j.log.Debug(fmt.Sprintf("Maximum of %d entries reached", *j.limitEntries))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				var entry JournalEntry
				if err := json.Unmarshal(value, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return entries, &lastKey, nil
}

// DropRoom deletes every entry of a room.
func (j JournalRepository) DropRoom(room domain.RoomID) error {
	return j.db.DropPrefix([]byte(roomPrefix(room)))
}

func roomPrefix(room domain.RoomID) string {
	return fmt.Sprintf("journal:%s:", hex.EncodeToString([]byte(room)))
}
