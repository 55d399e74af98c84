package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"newsroom/web/internal/models"
)

const tokenSeparator = ","

// ErrInvalidToken is returned for tokens that do not decode to a usable state.
var ErrInvalidToken = errors.New("invalid load-more token")

// State is the part of a Controller a stateless request needs to continue.
type State struct {
	Category models.Category
	Offset   int
	Shown    int
	Total    int
}

// HasMore mirrors Controller.HasMore for a decoded token.
func (s State) HasMore() bool {
	return s.Shown < s.Total
}

// EncodeToken creates an opaque token from s.
func EncodeToken(s State) string {
	key := strings.Join([]string{
		string(s.Category),
		strconv.Itoa(s.Offset),
		strconv.Itoa(s.Shown),
		strconv.Itoa(s.Total),
	}, tokenSeparator)
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodeToken parses the opaque token back into a State.
func DecodeToken(token string) (State, error) {
	decodedBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return State{}, fmt.Errorf("%w: bad encoding: %w", ErrInvalidToken, err)
	}

	parts := strings.Split(string(decodedBytes), tokenSeparator)
	if len(parts) != 4 {
		return State{}, fmt.Errorf("%w: bad format", ErrInvalidToken)
	}

	category, ok := models.ParseCategory(parts[0])
	if !ok {
		return State{}, fmt.Errorf("%w: unknown category %q", ErrInvalidToken, parts[0])
	}

	var nums [3]int
	for i, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return State{}, fmt.Errorf("%w: bad number %q", ErrInvalidToken, p)
		}
		nums[i] = n
	}
	if nums[0]%PageSize != 0 {
		return State{}, fmt.Errorf("%w: offset %d is not a page boundary", ErrInvalidToken, nums[0])
	}

	return State{Category: category, Offset: nums[0], Shown: nums[1], Total: nums[2]}, nil
}
