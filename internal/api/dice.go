package api

import (
	"context"
	"net/http"

	"github.com/gridplay/ttrpg-client/pkg/types"
)

// RollDice submits a roll. The direct response is informational only; the
// authoritative result every participant displays arrives as a dice_rolled
// push event.
func (c *Client) RollDice(ctx context.Context, formula string) (types.DiceRollResult, error) {
	var out types.DiceRollResult
	err := c.do(ctx, http.MethodPost, "/dice/roll",
		map[string]string{"dice_formula": formula}, &out)
	return out, err
}
