package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	personRequiredKeys = []string{"email", "nickname"}
	bookRequiredKeys   = []string{"title"}
	clubRequiredKeys   = []string{"name", "currentBook", "ownerId"}
)

// PersonFromMap decodes an untyped key/value map into a Person. Required keys
// must be present; the id is taken from "userId" and only generated when gen
// is non-nil.
func PersonFromMap(m map[string]any, gen IDGenerator) (Person, error) {
	var draft PersonDraft
	if err := decodeMap(EntityPerson, "", m, personRequiredKeys, &draft); err != nil {
		return Person{}, err
	}
	return draft.Build(gen)
}

// BookFromMap decodes an untyped map into a Book.
func BookFromMap(m map[string]any, gen IDGenerator) (Book, error) {
	var draft BookDraft
	if err := decodeMap(EntityBook, "", m, bookRequiredKeys, &draft); err != nil {
		return Book{}, err
	}
	return draft.Build(gen)
}

// ClubFromMap decodes an untyped map into a Club. The nested "currentBook"
// map is checked with the same rules and its failures are reported with a
// "currentBook." prefix.
func ClubFromMap(m map[string]any, gen IDGenerator) (Club, error) {
	if err := requireKeys(EntityClub, "", m, clubRequiredKeys); err != nil {
		return Club{}, err
	}
	nested, ok := m["currentBook"].(map[string]any)
	if !ok {
		return Club{}, ValidationError{Entity: EntityClub, Field: "currentBook", Reason: "must be an object"}
	}
	if err := requireKeys(EntityClub, "currentBook.", nested, bookRequiredKeys); err != nil {
		return Club{}, err
	}
	var draft ClubDraft
	if err := decodeMap(EntityClub, "", m, nil, &draft); err != nil {
		return Club{}, err
	}
	return draft.Build(gen)
}

func requireKeys(entity EntityType, prefix string, m map[string]any, keys []string) error {
	for _, key := range keys {
		if v, ok := m[key]; !ok || v == nil {
			return ValidationError{Entity: entity, Field: prefix + key}
		}
	}
	return nil
}

func decodeMap(entity EntityType, prefix string, m map[string]any, required []string, out any) error {
	if m == nil {
		return ValidationError{Entity: entity, Field: prefix, Reason: "missing object"}
	}
	if err := requireKeys(entity, prefix, m, required); err != nil {
		return err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %s map: %w", entity, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return ValidationError{Entity: entity, Field: prefix + typeErr.Field, Reason: "has the wrong type"}
		}
		return ValidationError{Entity: entity, Field: prefix, Reason: err.Error()}
	}
	return nil
}
