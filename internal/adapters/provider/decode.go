package provider

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/okian/taixiu/internal/domain/dedupe"
	"github.com/okian/taixiu/internal/domain/model"
)

// Decoded is the outcome of decoding an upstream body.
type Decoded struct {
	Sessions []model.Session
	// Skipped counts items that had no id or an unrecognised result.
	Skipped int
	// Duplicates counts items repeating an earlier id; the first one is kept.
	Duplicates int
}

// Decode extracts sessions from body. An empty path means the body is the
// array itself. Items carry id, result, dice and total; alternative keys
// session/phien, ket_qua and tong are accepted as well.
func Decode(body []byte, path string) (Decoded, error) {
	if !gjson.ValidBytes(body) {
		return Decoded{}, fmt.Errorf("%w: body is not valid JSON", ErrDecode)
	}

	items := gjson.ParseBytes(body)
	if path != "" {
		items = items.Get(path)
	}
	if !items.IsArray() {
		return Decoded{}, fmt.Errorf("%w: %q is not an array", ErrDecode, path)
	}

	var out Decoded
	seen := dedupe.NewInMemoryDeduper()
	items.ForEach(func(_, item gjson.Result) bool {
		s, ok := decodeItem(item)
		switch {
		case !ok:
			out.Skipped++
		case seen.SeenAndRecord(s.ID):
			out.Duplicates++
		default:
			out.Sessions = append(out.Sessions, s)
		}
		return true
	})
	return out, nil
}

func decodeItem(item gjson.Result) (model.Session, bool) {
	id := first(item, "id", "session", "phien")
	if id.Type != gjson.Number && id.Type != gjson.String {
		return model.Session{}, false
	}
	sessionID := id.Int()
	if sessionID <= 0 {
		return model.Session{}, false
	}

	outcome, err := model.ParseOutcome(first(item, "result", "ket_qua").String())
	if err != nil {
		return model.Session{}, false
	}

	s := model.Session{
		ID:      sessionID,
		Outcome: outcome,
		Total:   int(first(item, "total", "tong").Int()),
	}
	for _, d := range item.Get("dice").Array() {
		s.Dice = append(s.Dice, int(d.Int()))
	}
	if s.Total == 0 {
		for _, d := range s.Dice {
			s.Total += d
		}
	}
	return s, true
}

func first(item gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
