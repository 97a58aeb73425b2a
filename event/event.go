/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package event

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// PushMessage is the message part of a push delivery.
type PushMessage struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// PushEnvelope is the body POSTed by the push subscription.
type PushEnvelope struct {
	Message      *PushMessage `json:"message"`
	Subscription string       `json:"subscription,omitempty"`
}

// StorageEvent describes one uploaded object. Only Bucket, Name and
// ContentType are required; the rest is informational.
type StorageEvent struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Size        Size              `json:"size,omitempty"`
	Generation  string            `json:"generation,omitempty"`
	TimeCreated string            `json:"timeCreated,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes the event, stringifying non-string metadata values
// so a payload carrying {"moderated": true} still counts as tagged.
// Generation and TimeCreated may be strings or numbers; values of any
// other type are dropped.
func (e *StorageEvent) UnmarshalJSON(b []byte) error {
	type alias StorageEvent
	aux := struct {
		*alias
		Generation  json.RawMessage        `json:"generation,omitempty"`
		TimeCreated json.RawMessage        `json:"timeCreated,omitempty"`
		Metadata    map[string]interface{} `json:"metadata,omitempty"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	e.Generation = looseString(aux.Generation)
	e.TimeCreated = looseString(aux.TimeCreated)

	e.Metadata = nil
	if len(aux.Metadata) == 0 {
		return nil
	}
	e.Metadata = make(map[string]string, len(aux.Metadata))
	for k, v := range aux.Metadata {
		switch tv := v.(type) {
		case nil:
			continue
		case string:
			e.Metadata[k] = tv
		case bool:
			e.Metadata[k] = strconv.FormatBool(tv)
		case float64:
			e.Metadata[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			raw, err := json.Marshal(tv)
			if err != nil {
				return err
			}
			e.Metadata[k] = string(raw)
		}
	}
	return nil
}

// Key returns the bucket-qualified object path, e.g. "b/discussionsMedia/x.png".
func (e StorageEvent) Key() string {
	return e.Bucket + "/" + e.Name
}

// Complete reports whether the fields required for moderation are present.
func (e StorageEvent) Complete() bool {
	return e.Bucket != "" && e.Name != "" && e.ContentType != ""
}

// MetadataValue looks a metadata key up case-insensitively. Object stores
// are free to normalize user metadata keys, S3 lowercases them.
func (e StorageEvent) MetadataValue(key string) (string, bool) {
	if v, ok := e.Metadata[key]; ok {
		return v, true
	}
	for k, v := range e.Metadata {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// MediaType returns the lowercased type/subtype without parameters.
func (e StorageEvent) MediaType() string {
	ct := e.ContentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// IsImage reports whether the content type is image/*.
func (e StorageEvent) IsImage() bool {
	return strings.HasPrefix(e.MediaType(), "image/")
}

// IsVideo reports whether the content type is video/*.
func (e StorageEvent) IsVideo() bool {
	return strings.HasPrefix(e.MediaType(), "video/")
}

// Size is an object size that upstream systems encode either as a JSON
// number or as a decimal string.
type Size int64

// UnmarshalJSON accepts 42, 4.2e1, "42" and null. Anything it cannot read
// as a non-negative size leaves s at 0 rather than failing the event.
func (s *Size) UnmarshalJSON(b []byte) error {
	*s = 0
	v := looseString(b)
	if v == "" {
		return nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n > 0 {
			*s = Size(n)
		}
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < math.MaxInt64 {
		*s = Size(f)
	}
	return nil
}

// looseString returns a JSON string's value or a JSON number's literal
// text, and "" for anything else.
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch {
	case raw[0] == '"':
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return ""
		}
		return strings.TrimSpace(str)
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	}
	return ""
}
