package identity

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

// base64BlockSize is the number of characters base64 encodes per block
const base64BlockSize = 4

// diagnosticParts is the number of leading token segments decoded for diagnostics (header and payload)
const diagnosticParts = 2

// PadSegment pads a base64 segment with '=' so that its length becomes a multiple of 4.
// JWT segments are encoded without trailing padding.
func PadSegment(segment string) string {
	missing := base64BlockSize - len(segment)%base64BlockSize
	if missing == base64BlockSize {
		return segment
	}
	return segment + strings.Repeat("=", missing)
}

// DecodeSegment pads and decodes a single token segment.
// The standard alphabet is tried first, the URL-safe alphabet used by JWTs second.
func DecodeSegment(segment string) ([]byte, error) {
	padded := PadSegment(segment)
	decoded, err := base64.StdEncoding.DecodeString(padded)
	if err == nil {
		return decoded, nil
	}
	if urlDecoded, urlErr := base64.URLEncoding.DecodeString(padded); urlErr == nil {
		return urlDecoded, nil
	}
	return nil, err
}

// LogTokenDetails logs the decoded header and payload of an access token.
// The signature is never decoded. A segment that cannot be decoded is logged as an error and does not prevent the
// remaining segment from being logged.
func LogTokenDetails(logger zerolog.Logger, accessToken string) {
	parts := strings.Split(accessToken, ".")
	if len(parts) > diagnosticParts {
		parts = parts[:diagnosticParts]
	}

	for i, part := range parts {
		decoded, err := DecodeSegment(part)
		if err != nil {
			logger.Error().Err(err).Int("part", i).Msg("failed to decode token part")
			continue
		}
		var content any
		if err := json.Unmarshal(decoded, &content); err != nil {
			logger.Error().Err(err).Int("part", i).Msg("failed to decode token part")
			continue
		}
		logger.Info().Int("part", i).Interface("content", content).Msg("token part")
	}
}
