package agenda

import (
	"strconv"

	"github.com/google/uuid"
)

type keyKind uint8

const (
	keyPending keyKind = iota + 1
	keyConfirmed
	keyHoliday
)

// Key identifies an item inside the agenda. Event items start with a
// pending key while their insert is in flight and carry a confirmed key
// once the store assigned an id.
type Key struct {
	kind  keyKind
	token uuid.UUID
	id    int64
	day   string
}

// PendingKey returns a fresh placeholder key for an optimistic insert.
func PendingKey() Key {
	return Key{kind: keyPending, token: uuid.New()}
}

func ConfirmedKey(id int64) Key {
	return Key{kind: keyConfirmed, id: id}
}

func HolidayKey(dayKey string) Key {
	return Key{kind: keyHoliday, day: dayKey}
}

func (k Key) IsPending() bool {
	return k.kind == keyPending
}

// EventID returns the store id of a confirmed key.
func (k Key) EventID() (int64, bool) {
	return k.id, k.kind == keyConfirmed
}

func (k Key) String() string {
	switch k.kind {
	case keyPending:
		return "pending:" + k.token.String()
	case keyConfirmed:
		return "event:" + strconv.FormatInt(k.id, 10)
	case keyHoliday:
		return "holiday:" + k.day
	default:
		return ""
	}
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
