package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedTrace = errors.New("malformed trace")
	ErrEmptyEpisode   = errors.New("empty episode")
	ErrImageDecode    = errors.New("image decode error")
	ErrShardWrite     = errors.New("shard write error")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrNotFound       = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExclusionReason maps a per-episode failure to the short label recorded in
// the run report. Labels are stable; the summary groups exclusions by them.
func ExclusionReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyEpisode):
		return "empty episode"
	case errors.Is(err, ErrMalformedTrace):
		return "malformed trace"
	case errors.Is(err, ErrShardWrite):
		return "shard write failure"
	case errors.Is(err, ErrImageDecode):
		return "image decode failure"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return "invalid input"
	case errors.Is(err, ErrNotFound):
		return "missing input"
	default:
		return "processing failure"
	}
}

// Recoverable reports whether the failure is local to a sample or image and
// the surrounding episode should continue processing.
func Recoverable(err error) bool {
	return errors.Is(err, ErrMalformedTrace) || errors.Is(err, ErrImageDecode)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
