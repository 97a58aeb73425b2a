/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package event

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	cgerrors "github.com/suparena/contentguard/errors"
)

// Delivery is a structurally valid push delivery with its decoded payload.
type Delivery struct {
	MessageID    string
	PublishTime  string
	Subscription string
	Attributes   map[string]string
	Event        StorageEvent
}

// Decode parses a push body into a Delivery. Every failure is an
// EnvelopeError; nothing about the storage event itself is validated here,
// that is the filter's job.
func Decode(body []byte) (*Delivery, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, cgerrors.NewEnvelopeError("body is not valid JSON", err)
	}
	if env.Message == nil {
		return nil, cgerrors.NewEnvelopeError("message is missing", nil)
	}
	if env.Message.Data == "" {
		return nil, cgerrors.NewEnvelopeError("message.data is missing", nil)
	}

	payload, err := decodeBase64(env.Message.Data)
	if err != nil {
		return nil, cgerrors.NewEnvelopeError("message.data is not base64", err)
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, cgerrors.NewEnvelopeError("payload is not a JSON object", nil)
	}

	var ev StorageEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, cgerrors.NewEnvelopeError("payload is not a valid storage event", err)
	}

	return &Delivery{
		MessageID:    env.Message.MessageID,
		PublishTime:  env.Message.PublishTime,
		Subscription: env.Subscription,
		Attributes:   env.Message.Attributes,
		Event:        ev,
	}, nil
}

// Encode builds a push body around ev.
func Encode(ev StorageEvent, messageID string) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(PushEnvelope{
		Message: &PushMessage{
			Data:      base64.StdEncoding.EncodeToString(payload),
			MessageID: messageID,
		},
	})
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
