package remote

import (
	"strconv"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
)

// Firestore REST typed values. Only the kinds the bookmark document uses are
// modelled.
type value struct {
	StringValue    *string     `json:"stringValue,omitempty"`
	IntegerValue   *string     `json:"integerValue,omitempty"`
	TimestampValue *string     `json:"timestampValue,omitempty"`
	ArrayValue     *arrayValue `json:"arrayValue,omitempty"`
	MapValue       *mapValue   `json:"mapValue,omitempty"`
}

type arrayValue struct {
	Values []value `json:"values,omitempty"`
}

type mapValue struct {
	Fields map[string]value `json:"fields,omitempty"`
}

type document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]value `json:"fields,omitempty"`
}

// ─────────────────────────────
// encoding
// ─────────────────────────────

func stringVal(s string) value {
	return value{StringValue: &s}
}

func intVal(n int64) value {
	s := strconv.FormatInt(n, 10)
	return value{IntegerValue: &s}
}

func timestampVal(t time.Time) value {
	s := t.UTC().Format(time.RFC3339Nano)
	return value{TimestampValue: &s}
}

func arrayVal(values []value) value {
	return value{ArrayValue: &arrayValue{Values: values}}
}

func mapVal(fields map[string]value) value {
	return value{MapValue: &mapValue{Fields: fields}}
}

func stringsVal(items []string) value {
	values := make([]value, 0, len(items))
	for _, s := range items {
		values = append(values, stringVal(s))
	}
	return arrayVal(values)
}

func encodeBookmark(b domain.Bookmark) value {
	return mapVal(map[string]value{
		"id":           stringVal(b.ID),
		"url":          stringVal(b.URL),
		"title":        stringVal(b.Title),
		"favicon":      stringVal(b.Favicon),
		"note":         stringVal(b.Note),
		"group":        stringVal(b.Group),
		"tags":         stringsVal(b.Tags),
		"createdAt":    intVal(b.CreatedAt),
		"clickCount":   intVal(b.ClickCount),
		"lastClickAt":  intVal(b.LastClickAt),
		"lastActiveAt": intVal(b.LastActiveAt),
	})
}

func encodeDeleted(deleted domain.DeletedURLs) value {
	values := make([]value, 0, len(deleted))
	for _, url := range sortedKeys(deleted) {
		values = append(values, mapVal(map[string]value{
			"url":       stringVal(url),
			"deletedAt": intVal(deleted[url]),
		}))
	}
	return arrayVal(values)
}

func encodeSnapshot(s Snapshot, now time.Time) document {
	bookmarks := make([]value, 0, len(s.Bookmarks))
	for _, b := range s.Bookmarks {
		bookmarks = append(bookmarks, encodeBookmark(b))
	}

	return document{
		Fields: map[string]value{
			"bookmarks":   arrayVal(bookmarks),
			"groupOrder":  stringsVal(s.GroupOrder),
			"deletedUrls": encodeDeleted(s.DeletedURLs),
			"updatedAt":   timestampVal(now),
			"deviceId":    stringVal(s.DeviceID),
		},
	}
}

// ─────────────────────────────
// decoding (absent string → "", integer → 0, array → empty)
// ─────────────────────────────

func fieldString(fields map[string]value, name string) string {
	v, ok := fields[name]
	if !ok || v.StringValue == nil {
		return ""
	}
	return *v.StringValue
}

func fieldInt(fields map[string]value, name string) int64 {
	v, ok := fields[name]
	if !ok || v.IntegerValue == nil {
		return 0
	}
	n, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func fieldTime(fields map[string]value, name string) time.Time {
	v, ok := fields[name]
	if !ok || v.TimestampValue == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
	if err != nil {
		return time.Time{}
	}
	return t
}

func fieldArray(fields map[string]value, name string) []value {
	v, ok := fields[name]
	if !ok || v.ArrayValue == nil {
		return nil
	}
	return v.ArrayValue.Values
}

func fieldStrings(fields map[string]value, name string) []string {
	values := fieldArray(fields, name)
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v.StringValue != nil {
			out = append(out, *v.StringValue)
		}
	}
	return out
}

func mapFields(v value) map[string]value {
	if v.MapValue == nil {
		return nil
	}
	return v.MapValue.Fields
}

func decodeBookmark(fields map[string]value) domain.Bookmark {
	return domain.Bookmark{
		ID:           fieldString(fields, "id"),
		URL:          fieldString(fields, "url"),
		Title:        fieldString(fields, "title"),
		Favicon:      fieldString(fields, "favicon"),
		Note:         fieldString(fields, "note"),
		Group:        fieldString(fields, "group"),
		Tags:         fieldStrings(fields, "tags"),
		CreatedAt:    fieldInt(fields, "createdAt"),
		ClickCount:   fieldInt(fields, "clickCount"),
		LastClickAt:  fieldInt(fields, "lastClickAt"),
		LastActiveAt: fieldInt(fields, "lastActiveAt"),
	}
}

func decodeSnapshot(doc document) Snapshot {
	s := emptySnapshot()
	if doc.Fields == nil {
		return s
	}

	for _, item := range fieldArray(doc.Fields, "bookmarks") {
		s.Bookmarks = append(s.Bookmarks, decodeBookmark(mapFields(item)))
	}

	s.GroupOrder = fieldStrings(doc.Fields, "groupOrder")

	for _, item := range fieldArray(doc.Fields, "deletedUrls") {
		fields := mapFields(item)
		if url := fieldString(fields, "url"); url != "" {
			s.DeletedURLs[url] = fieldInt(fields, "deletedAt")
		}
	}

	s.DeviceID = fieldString(doc.Fields, "deviceId")
	s.UpdatedAt = fieldTime(doc.Fields, "updatedAt")
	return s
}

func encodeProfile(u domain.User, now time.Time) document {
	return document{
		Fields: map[string]value{
			"email":       stringVal(u.Email),
			"displayName": stringVal(u.DisplayName),
			"photoURL":    stringVal(u.PhotoURL),
			"createdAt":   stringVal(now.UTC().Format(time.RFC3339)),
		},
	}
}
