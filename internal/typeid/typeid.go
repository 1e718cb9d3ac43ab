// Package typeid mints the prefixed, sortable ids used for every stored
// record: users, notebooks, pages, placed stickers and uploaded images.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixNotebook = "nb"
	PrefixPage     = "page"
	PrefixSticker  = "stk"
	PrefixAsset    = "asset"
)

var ErrWrongPrefix = errors.New("wrong id prefix")

// New returns a fresh id with prefix. It panics only on an invalid prefix,
// which is a programming error.
func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewNotebookID() string { return New(PrefixNotebook) }
func NewPageID() string     { return New(PrefixPage) }
func NewStickerID() string  { return New(PrefixSticker) }
func NewAssetID() string    { return New(PrefixAsset) }

// Validate checks that id parses and carries prefix.
func Validate(id, prefix string) error {
	got, err := Prefix(id)
	if err != nil {
		return err
	}
	if got != prefix {
		return fmt.Errorf("%w: want %q, got %q", ErrWrongPrefix, prefix, got)
	}
	return nil
}

// Prefix returns the type prefix of id.
func Prefix(id string) (string, error) {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("parse id %q: %w", id, err)
	}
	return parsed.Prefix(), nil
}

// Is reports whether id is a well-formed id of the given type.
func Is(id, prefix string) bool {
	return Validate(id, prefix) == nil
}
