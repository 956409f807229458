package logger

import (
	"log/slog"
	"strconv"
	"strings"
)

// MaxAttrLen is the longest string attribute written verbatim.
const MaxAttrLen = 128

// Attribute keys that carry client payload rather than metadata.
var payloadKeys = []string{
	"value",
	"message",
	"payload",
}

// elidedValue replaces payload attributes.
const elidedValue = "<elided>"

// sanitizeAttr elides payload attributes and clips long strings.
func sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if strVal != "" && IsPayloadKey(a.Key) {
			return slog.String(a.Key, elidedValue)
		}
		if len(strVal) > MaxAttrLen {
			return slog.String(a.Key, Clip(strVal))
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = sanitizeAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// Clip shortens s to MaxAttrLen bytes and notes how much was dropped.
func Clip(s string) string {
	if len(s) <= MaxAttrLen {
		return s
	}
	return s[:MaxAttrLen] + "...(" + strconv.Itoa(len(s)-MaxAttrLen) + " more bytes)"
}

// IsPayloadKey checks if a key name refers to client payload.
func IsPayloadKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, k := range payloadKeys {
		if keyLower == k {
			return true
		}
	}
	return false
}
