package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gridplay/ttrpg-client/pkg/types"
)

// Character creation budget: each attribute in [1,10], and the three together
// may not exceed 15 points.
const (
	AttributeMin    = 1
	AttributeMax    = 10
	AttributeBudget = 15
)

var ErrAttributeBudget = errors.New("attribute points exceed the creation budget")

// CharacterDraft is the creation payload. The backend spells the class field
// with a trailing underscore on this endpoint only.
type CharacterDraft struct {
	Name         string `json:"name"`
	Race         string `json:"race"`
	Class        string `json:"class_"`
	Strength     int    `json:"strength"`
	Dexterity    int    `json:"dexterity"`
	Intelligence int    `json:"intelligence"`
}

func (d CharacterDraft) Validate() error {
	if d.Name == "" {
		return errors.New("character name is required")
	}
	for _, attr := range []struct {
		name  string
		value int
	}{
		{"strength", d.Strength},
		{"dexterity", d.Dexterity},
		{"intelligence", d.Intelligence},
	} {
		if attr.value < AttributeMin || attr.value > AttributeMax {
			return fmt.Errorf("%s must be between %d and %d", attr.name, AttributeMin, AttributeMax)
		}
	}
	if d.Strength+d.Dexterity+d.Intelligence > AttributeBudget {
		return fmt.Errorf("%w: %d > %d", ErrAttributeBudget,
			d.Strength+d.Dexterity+d.Intelligence, AttributeBudget)
	}
	return nil
}

func (c *Client) Characters(ctx context.Context) ([]types.Character, error) {
	var out []types.Character
	if err := c.do(ctx, http.MethodGet, "/characters/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCharacter validates the draft locally first; a budget or range
// violation never reaches the network.
func (c *Client) CreateCharacter(ctx context.Context, draft CharacterDraft) (types.Character, error) {
	if err := draft.Validate(); err != nil {
		return types.Character{}, err
	}
	var out types.Character
	err := c.do(ctx, http.MethodPost, "/characters/", draft, &out)
	return out, err
}
