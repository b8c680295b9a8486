package server

import (
	"errors"
	"strconv"
	"strings"
)

func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseRound reads a non-negative round filter; zero means any round.
func parseRound(value string) (int, error) {
	round, err := parseOptionalInt(value)
	if err != nil || round < 0 {
		return 0, errors.New("invalid_round_number")
	}
	return round, nil
}
