package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates a key that ValidateKey rejects.
	ErrInvalidKey = errors.New("invalid storage key")
)

// ValidateKey checks that key can name a blob and also serve as the path of
// a blob:// document URL. Keys are slash-separated, every segment is
// non-empty, free of "..", and already in canonical path-escaped form, so
// the URL's escaped path and the stored key are the same string.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == "" || seg == "." || strings.Contains(seg, "..") {
			return fmt.Errorf("%w: segment %q in %s", ErrInvalidKey, seg, key)
		}
		raw, err := url.PathUnescape(seg)
		if err != nil || url.PathEscape(raw) != seg {
			return fmt.Errorf("%w: segment %q is not path-escaped", ErrInvalidKey, seg)
		}
	}
	return nil
}
