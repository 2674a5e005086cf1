package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownCategory = errors.New("unknown category")

// Category is the canonical (uppercase) stored form of a document category.
type Category string

const (
	CategoryAPC    Category = "APC"
	CategoryACE    Category = "ACE"
	CategoryRecibo Category = "RECIBO"
)

var Categories = []Category{CategoryAPC, CategoryACE, CategoryRecibo}

// ParseCategory accepts either the canonical token or the bucket name in any case.
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APC":
		return CategoryAPC, nil
	case "ACE":
		return CategoryACE, nil
	case "RECIBO", "RECIBOS":
		return CategoryRecibo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Bucket is the lowercase display name. RECIBO is the one irregular plural.
func (c Category) Bucket() string {
	if c == CategoryRecibo {
		return "recibos"
	}
	return strings.ToLower(string(c))
}

func (c Category) Valid() bool {
	switch c {
	case CategoryAPC, CategoryACE, CategoryRecibo:
		return true
	}
	return false
}
