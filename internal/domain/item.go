package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ItemKind discriminates what an ItemRef points at
type ItemKind string

const (
	ItemMenuItem ItemKind = "menu_item"
	ItemDish     ItemKind = "dish"
)

// ItemRef references exactly one menu item or one dish
type ItemRef struct {
	Kind ItemKind `json:"kind" validate:"required,oneof=menu_item dish"`
	ID   int64    `json:"id" validate:"required,gt=0"`
}

// MenuItem builds a reference to a menu item
func MenuItem(id int64) ItemRef { return ItemRef{Kind: ItemMenuItem, ID: id} }

// Dish builds a reference to a dish
func Dish(id int64) ItemRef { return ItemRef{Kind: ItemDish, ID: id} }

// ParseItemKind accepts the canonical kind tags
func ParseItemKind(s string) (ItemKind, error) {
	switch ItemKind(strings.ToLower(strings.TrimSpace(s))) {
	case ItemMenuItem:
		return ItemMenuItem, nil
	case ItemDish:
		return ItemDish, nil
	}
	return "", fmt.Errorf("%w: unknown item kind %q", ErrValidation, s)
}

// ItemRefFromColumns converts the two-nullable-keys storage shape into an ItemRef.
// Exactly one of the ids must be set.
func ItemRefFromColumns(menuItemID, dishID *int64) (ItemRef, error) {
	switch {
	case menuItemID != nil && dishID != nil:
		return ItemRef{}, fmt.Errorf("%w: both menu_item_id and dish_id are set", ErrValidation)
	case menuItemID != nil:
		return MenuItem(*menuItemID), nil
	case dishID != nil:
		return Dish(*dishID), nil
	}
	return ItemRef{}, fmt.Errorf("%w: neither menu_item_id nor dish_id is set", ErrValidation)
}

// Columns is the inverse of ItemRefFromColumns
func (r ItemRef) Columns() (menuItemID, dishID *int64) {
	id := r.ID
	if r.Kind == ItemDish {
		return nil, &id
	}
	return &id, nil
}

// Validate checks the kind tag and id
func (r ItemRef) Validate() error {
	if r.Kind != ItemMenuItem && r.Kind != ItemDish {
		return fmt.Errorf("%w: unknown item kind %q", ErrValidation, r.Kind)
	}
	if r.ID <= 0 {
		return fmt.Errorf("%w: item id must be positive", ErrValidation)
	}
	return nil
}

func (r ItemRef) String() string {
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}
